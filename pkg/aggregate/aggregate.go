// Package aggregate reduces input records to layout-ready groups.
//
// Records are bucketed by group key in first-seen order, null-valued records
// are dropped before any summing, and each group gets a centroid (the mean
// of its members' coordinates) and a value total. Groups that cannot be laid
// out are skipped with a coded reason; nothing is dropped silently.
package aggregate

import (
	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/feature"
	"github.com/cartopack/cartopack/pkg/geom"
)

// MinFlatMembers is the member threshold for flat packing. Packing one or
// two circles is not meaningfully "packed", so smaller groups are skipped.
const MinFlatMembers = 3

// Member is one record that survived aggregation filtering. Raw carries the
// source row by column name so member ordering can use any column.
type Member struct {
	ID       string            `json:"id"`
	Value    float64           `json:"value"`
	Case     string            `json:"case,omitempty"`
	Category string            `json:"category,omitempty"`
	X        float64           `json:"x"`
	Y        float64           `json:"y"`
	Raw      map[string]string `json:"raw,omitempty"`
}

// Group is one aggregation unit, anchored at the centroid of its members.
type Group struct {
	Key      string     `json:"key"`
	Members  []Member   `json:"members"`
	Centroid geom.Point `json:"centroid"`
	Sum      float64    `json:"sum"`
}

// Count returns the number of members.
func (g Group) Count() int {
	return len(g.Members)
}

// Values returns the member values in member order.
func (g Group) Values() []float64 {
	vals := make([]float64, len(g.Members))
	for i, m := range g.Members {
		vals[i] = m.Value
	}
	return vals
}

// Total is a keyed value sum.
type Total struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// CaseTotals returns per-case value sums in first-seen order. Members with
// a null case key share one bucket keyed by the empty string.
func (g Group) CaseTotals() []Total {
	var (
		order  []string
		totals = map[string]float64{}
	)
	for _, m := range g.Members {
		if _, seen := totals[m.Case]; !seen {
			order = append(order, m.Case)
		}
		totals[m.Case] += m.Value
	}

	out := make([]Total, len(order))
	for i, key := range order {
		out[i] = Total{Key: key, Value: totals[key]}
	}
	return out
}

// Skip records why a group was excluded from the run.
type Skip struct {
	Group  string      `json:"group"`
	Code   errors.Code `json:"code"`
	Reason string      `json:"reason"`
}

// Result is the outcome of aggregating a record table.
type Result struct {
	// Groups that survived filtering, in first-seen order.
	Groups []Group `json:"groups"`

	// Skips lists excluded groups with coded reasons.
	Skips []Skip `json:"skips,omitempty"`

	// DroppedNullValue counts records dropped for a null value cell.
	DroppedNullValue int `json:"dropped_null_value"`

	// DroppedNullGroup counts records dropped for a missing group key.
	DroppedNullGroup int `json:"dropped_null_group"`
}

// Kept returns the group keys that survived, in order.
func (r Result) Kept() []string {
	keys := make([]string, len(r.Groups))
	for i, g := range r.Groups {
		keys[i] = g.Key
	}
	return keys
}

// Groups aggregates records into groups.
//
// Records with a null value or a missing group key are dropped first and
// counted. Groups whose remaining members sum to zero are skipped, as are
// groups with no members at all (every record was null-valued). minMembers
// enforces the flat-packing threshold; pass 0 or 1 to disable it.
func Groups(records []feature.Record, minMembers int) Result {
	var (
		result Result
		order  []string
		byKey  = map[string]*Group{}
	)

	for _, rec := range records {
		if rec.Group == "" {
			result.DroppedNullGroup++
			continue
		}
		g, ok := byKey[rec.Group]
		if !ok {
			g = &Group{Key: rec.Group}
			byKey[rec.Group] = g
			order = append(order, rec.Group)
		}
		if !rec.HasValue() {
			result.DroppedNullValue++
			continue
		}
		g.Members = append(g.Members, Member{
			ID:       rec.ID,
			Value:    *rec.Value,
			Case:     rec.Case,
			Category: rec.Category,
			X:        rec.X,
			Y:        rec.Y,
			Raw:      rec.Raw,
		})
		g.Sum += *rec.Value
	}

	for _, key := range order {
		g := byKey[key]

		switch {
		case len(g.Members) == 0:
			result.Skips = append(result.Skips, Skip{
				Group:  key,
				Code:   errors.ErrCodeEmptyGroup,
				Reason: "all records have null values",
			})
			continue
		case g.Sum == 0:
			result.Skips = append(result.Skips, Skip{
				Group:  key,
				Code:   errors.ErrCodeZeroSum,
				Reason: "member values sum to zero",
			})
			continue
		case minMembers > 1 && len(g.Members) < minMembers:
			result.Skips = append(result.Skips, Skip{
				Group:  key,
				Code:   errors.ErrCodeTooFewMembers,
				Reason: "fewer members than the packing threshold",
			})
			continue
		}

		var sx, sy float64
		for _, m := range g.Members {
			sx += m.X
			sy += m.Y
		}
		n := float64(len(g.Members))
		g.Centroid = geom.Pt(sx/n, sy/n)

		result.Groups = append(result.Groups, *g)
	}

	return result
}
