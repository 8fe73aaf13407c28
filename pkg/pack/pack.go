// Package pack places circles without overlaps.
//
// The flat packer arranges a sequence of radii into a compact cluster of
// mutually tangent circles; the hierarchical packer nests two levels of
// such clusters inside a target enclosure. Both are deterministic for a
// given input order, and order is controlled by the caller through a
// SortMode and an injected seeded random source.
package pack

import (
	"math"

	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/geom"
)

// eps is the tolerance for tangency checks. Two circles whose gap is
// smaller than eps count as touching, not overlapping.
const eps = 1e-9

// Packed is a flat arrangement of circles.
type Packed struct {
	// Offsets holds one offset per input radius, relative to the
	// arrangement center, in input order.
	Offsets []geom.Point

	// Bounding is the radius of the smallest circle around the arrangement
	// center that contains every placed circle.
	Bounding float64
}

// Pack arranges circles of the given radii into a compact cluster.
//
// Circles are placed one at a time: the first at the origin, the second
// tangent to it, and every following circle tangent to a pair of already
// placed circles, choosing the candidate position closest to the cluster
// center that overlaps nothing. Ties keep the first candidate found, so
// equal inputs always produce equal outputs. The finished arrangement is
// recentered on its bounding-box midpoint.
func Pack(radii []float64) (*Packed, error) {
	if len(radii) == 0 {
		return nil, errors.New(errors.ErrCodePackFailed, "no circles to pack")
	}
	for i, r := range radii {
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, errors.New(errors.ErrCodePackFailed, "radius %d is not a positive finite number: %v", i, r)
		}
	}

	centers := make([]geom.Point, len(radii))
	centers[0] = geom.Pt(0, 0)
	if len(radii) > 1 {
		centers[1] = geom.Pt(radii[0]+radii[1], 0)
	}

	for k := 2; k < len(radii); k++ {
		centers[k] = place(centers[:k], radii[:k], radii[k])
	}

	return recenter(centers, radii), nil
}

// place finds a position for a circle of radius r tangent to two already
// placed circles, minimizing distance from the origin among all candidates
// that overlap nothing. Falls back to a position on the positive x axis
// beyond the whole cluster, which can never overlap.
func place(centers []geom.Point, radii []float64, r float64) geom.Point {
	var (
		best     geom.Point
		bestDist = math.Inf(1)
	)

	for i := 0; i < len(centers); i++ {
		for j := i + 1; j < len(centers); j++ {
			for _, cand := range tangentPoints(centers[i], radii[i]+r, centers[j], radii[j]+r) {
				if overlapsAny(cand, r, centers, radii) {
					continue
				}
				if d := cand.Norm(); d < bestDist {
					best = cand
					bestDist = d
				}
			}
		}
	}
	if !math.IsInf(bestDist, 1) {
		return best
	}

	// No tangent candidate was free. Any point at distance D+r from the
	// origin, where D covers every placed circle, is safely clear.
	var reach float64
	for i, c := range centers {
		reach = max(reach, c.Norm()+radii[i])
	}
	return geom.Pt(reach+r, 0)
}

// tangentPoints returns the intersection points of two circles, which are
// the positions where a new circle touches both owners at once. Returns
// nil when the circles are too far apart, nested, or concentric.
func tangentPoints(c1 geom.Point, r1 float64, c2 geom.Point, r2 float64) []geom.Point {
	d := c1.Distance(c2)
	if d == 0 || d > r1+r2+eps || d < math.Abs(r1-r2)-eps {
		return nil
	}

	a := (d*d + r1*r1 - r2*r2) / (2 * d)
	h2 := r1*r1 - a*a
	if h2 < 0 {
		h2 = 0
	}
	h := math.Sqrt(h2)

	dir := c2.Sub(c1).Mul(1 / d)
	mid := c1.Add(dir.Mul(a))
	perp := geom.Pt(-dir.Y, dir.X).Mul(h)

	return []geom.Point{mid.Add(perp), mid.Sub(perp)}
}

// overlapsAny reports whether a circle at p with radius r overlaps any
// placed circle by more than the tangency tolerance.
func overlapsAny(p geom.Point, r float64, centers []geom.Point, radii []float64) bool {
	for i, c := range centers {
		if p.Distance(c) < r+radii[i]-eps {
			return true
		}
	}
	return false
}

// recenter shifts the arrangement so its bounding-box midpoint becomes the
// origin, and computes the bounding radius around that point.
func recenter(centers []geom.Point, radii []float64) *Packed {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, c := range centers {
		minX = min(minX, c.X-radii[i])
		minY = min(minY, c.Y-radii[i])
		maxX = max(maxX, c.X+radii[i])
		maxY = max(maxY, c.Y+radii[i])
	}
	center := geom.Pt((minX+maxX)/2, (minY+maxY)/2)

	offsets := make([]geom.Point, len(centers))
	var bounding float64
	for i, c := range centers {
		offsets[i] = c.Sub(center)
		bounding = max(bounding, offsets[i].Norm()+radii[i])
	}

	return &Packed{Offsets: offsets, Bounding: bounding}
}
