// Package compose turns aggregated groups into positioned map features.
//
// Arrangements from pkg/pack and pkg/treemap live in local coordinates
// around the origin. Compose sizes them with a fitted scaler, anchors them
// at the group centroid, and re-attaches the source attributes each
// feature describes. One function per tool: FlatCircles, NestedCircles,
// TreemapRects.
package compose

import (
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/cartopack/cartopack/pkg/aggregate"
	"github.com/cartopack/cartopack/pkg/layout"
	"github.com/cartopack/cartopack/pkg/pack"
	"github.com/cartopack/cartopack/pkg/scale"
	"github.com/cartopack/cartopack/pkg/treemap"
)

// Options controls member ordering within a group.
// SortField names a source column to order by instead of the laid-out
// value; it only applies to the ascending and descending modes. Rand is
// required for SortRandom.
type Options struct {
	Sort      pack.SortMode
	SortField string
	Rand      *rand.Rand
}

// FlatCircles lays out one group as sized, packed circles anchored at the
// group centroid. Each member becomes one circle carrying its record ID
// and attributes; features come back in member order regardless of the
// packing order.
func FlatCircles(g aggregate.Group, sc *scale.Scaler, opts Options) ([]layout.CircleFeature, error) {
	perm, err := memberOrder(g.Members, opts)
	if err != nil {
		return nil, err
	}

	radii := make([]float64, len(perm))
	for k, idx := range perm {
		r, err := sc.Radius(g.Members[idx].Value)
		if err != nil {
			return nil, err
		}
		radii[k] = r
	}

	arranged, err := pack.Pack(radii)
	if err != nil {
		return nil, err
	}

	features := make([]layout.CircleFeature, len(g.Members))
	for k, idx := range perm {
		m := g.Members[idx]
		center := g.Centroid.Add(arranged.Offsets[k])
		features[idx] = layout.CircleFeature{
			ID:       m.ID,
			X:        center.X,
			Y:        center.Y,
			Radius:   radii[k],
			Role:     layout.RoleCircle,
			Group:    g.Key,
			Case:     m.Case,
			Category: m.Category,
			Value:    m.Value,
		}
	}
	return features, nil
}

// NestedCircles lays out one group as a nested enclosure anchored at the
// group centroid. The enclosure radius comes from scaling the group sum;
// the interior is area-proportional. Returns the features in tree order
// (root first) along with the count of non-positive case/category
// combinations the hierarchy dropped.
func NestedCircles(g aggregate.Group, sc *scale.Scaler) ([]layout.CircleFeature, int, error) {
	radius, err := sc.Radius(g.Sum)
	if err != nil {
		return nil, 0, err
	}

	h, err := aggregate.BuildHierarchy(g)
	if err != nil {
		return nil, 0, err
	}

	placed, err := pack.PackHierarchy(h.Root, radius)
	if err != nil {
		return nil, h.DroppedCombos, err
	}

	features := make([]layout.CircleFeature, len(placed))
	for i, p := range placed {
		center := g.Centroid.Add(p.Offset)
		features[i] = layout.CircleFeature{
			X:        center.X,
			Y:        center.Y,
			Radius:   p.Radius,
			Level:    p.Level,
			Role:     p.Role,
			Group:    g.Key,
			Case:     p.Case,
			Category: p.Category,
			Value:    p.Value,
			Count:    p.Count,
		}
	}
	return features, h.DroppedCombos, nil
}

// TreemapRects lays out one group as a squarified treemap anchored at the
// group centroid. The square side comes from scaling the group sum. When
// useCase is set the rectangles are per-case sums, otherwise one per
// member. Non-positive items have no area and are dropped; the count is
// returned for the run summary.
func TreemapRects(g aggregate.Group, sc *scale.Scaler, useCase bool) ([]layout.RectFeature, int, error) {
	width, err := sc.Side(g.Sum)
	if err != nil {
		return nil, 0, err
	}

	type item struct {
		id    string
		cs    string
		value float64
	}
	var (
		items   []item
		dropped int
	)
	if useCase {
		for _, tot := range g.CaseTotals() {
			if tot.Value <= 0 {
				dropped++
				continue
			}
			items = append(items, item{cs: tot.Key, value: tot.Value})
		}
	} else {
		for _, m := range g.Members {
			if m.Value <= 0 {
				dropped++
				continue
			}
			items = append(items, item{id: m.ID, cs: m.Case, value: m.Value})
		}
	}

	values := make([]float64, len(items))
	for i, it := range items {
		values[i] = it.value
	}

	rects, err := treemap.Layout(values, width, g.Centroid)
	if err != nil {
		return nil, dropped, err
	}

	features := make([]layout.RectFeature, len(items))
	for i, it := range items {
		features[i] = layout.RectFeature{
			ID:     it.id,
			X:      rects[i].X,
			Y:      rects[i].Y,
			Width:  rects[i].W,
			Height: rects[i].H,
			Group:  g.Key,
			Case:   it.cs,
			Value:  it.value,
		}
	}
	return features, dropped, nil
}

// memberOrder computes the packing order of a group's members. The
// ascending and descending modes order by value, or by a sort field's raw
// cells when one is named: numerically when every cell parses as a number,
// lexicographically otherwise.
func memberOrder(members []aggregate.Member, opts Options) ([]int, error) {
	if opts.SortField != "" && (opts.Sort == pack.SortAscending || opts.Sort == pack.SortDescending) {
		if nums, ok := numericColumn(members, opts.SortField); ok {
			return pack.Order(nums, opts.Sort, opts.Rand)
		}
		return stringOrder(members, opts.SortField, opts.Sort), nil
	}

	values := make([]float64, len(members))
	for i, m := range members {
		values[i] = m.Value
	}
	return pack.Order(values, opts.Sort, opts.Rand)
}

// numericColumn parses a raw column across all members. ok is false when
// any cell is missing or not a number.
func numericColumn(members []aggregate.Member, field string) ([]float64, bool) {
	nums := make([]float64, len(members))
	for i, m := range members {
		v, err := strconv.ParseFloat(m.Raw[field], 64)
		if err != nil {
			return nil, false
		}
		nums[i] = v
	}
	return nums, true
}

// stringOrder sorts members lexicographically on a raw column. Stable, so
// equal cells keep their input order.
func stringOrder(members []aggregate.Member, field string, mode pack.SortMode) []int {
	perm := make([]int, len(members))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		ra, rb := members[perm[a]].Raw[field], members[perm[b]].Raw[field]
		if mode == pack.SortDescending {
			return ra > rb
		}
		return ra < rb
	})
	return perm
}
