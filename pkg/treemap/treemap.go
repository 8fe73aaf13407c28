// Package treemap subdivides a square into value-proportional rectangles.
//
// The algorithm is the squarified treemap of Bruls, Huizing and van Wijk
// ("Squarified Treemaps", 2000): items are laid out in runs along the short
// side of the remaining free space, and a run is closed as soon as adding
// the next item would worsen the worst aspect ratio in it. Items are
// processed in descending value order for compact results, but the returned
// rectangles keep input order.
package treemap

import (
	"math"
	"sort"

	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/geom"
)

// Layout partitions a width x width square into one rectangle per value,
// each with an area proportional to its value. The square is centered on
// the anchor, so its lower-left corner sits at (anchor - width/2) on both
// axes. Zero values produce zero rectangles; negative values are a layout
// error, as are an empty or all-zero input.
func Layout(values []float64, width float64, anchor geom.Point) ([]geom.Rect, error) {
	if len(values) == 0 {
		return nil, errors.New(errors.ErrCodeSubdivideFailed, "no values to subdivide")
	}
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return nil, errors.New(errors.ErrCodeSubdivideFailed, "square width is not a positive finite number: %v", width)
	}
	var total float64
	for i, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New(errors.ErrCodeSubdivideFailed, "value %d is negative or not finite: %v", i, v)
		}
		total += v
	}
	if total == 0 {
		return nil, errors.New(errors.ErrCodeSubdivideFailed, "values sum to zero")
	}

	square := geom.Rect{
		X: anchor.X - width/2,
		Y: anchor.Y - width/2,
		W: width,
		H: width,
	}

	// Normalize to the square's area and order descending, remembering
	// each value's input position.
	areas := make([]indexedArea, len(values))
	for i, v := range values {
		areas[i] = indexedArea{index: i, area: v * square.Area() / total}
	}
	sort.SliceStable(areas, func(i, j int) bool { return areas[i].area > areas[j].area })

	positive := make([]float64, 0, len(areas))
	for _, a := range areas {
		if a.area > 0 {
			positive = append(positive, a.area)
		}
	}

	l := subdivision{free: square}
	l.squarify(positive, nil, min(square.W, square.H))
	clampOverflows(square, l.placed)

	// Restore input order; zero values keep zero rectangles.
	rects := make([]geom.Rect, len(values))
	for pos, a := range areas {
		if pos < len(l.placed) {
			rects[a.index] = l.placed[pos]
		}
	}
	return rects, nil
}

// indexedArea carries a normalized area together with its input position.
type indexedArea struct {
	index int
	area  float64
}

// subdivision tracks placed rectangles and the remaining free space.
type subdivision struct {
	placed []geom.Rect
	free   geom.Rect
}

// squarify consumes areas into runs. A run grows while adding the next
// area improves the worst aspect ratio along the current short side w;
// otherwise the run is fixed and a fresh run starts in the shrunk free
// space. Expects normalized positive areas summing to the free space.
func (l *subdivision) squarify(pending, run []float64, w float64) {
	if len(pending) == 0 {
		l.placeRun(run)
		return
	}
	if len(run) == 0 {
		l.squarify(pending[1:], []float64{pending[0]}, w)
		return
	}

	if grown := append(run, pending[0]); worstAspect(run, w) > worstAspect(grown, w) {
		l.squarify(pending[1:], grown, w)
	} else {
		l.placeRun(run)
		l.squarify(pending, nil, min(l.free.W, l.free.H))
	}
}

// placeRun fixes a run of areas along the short side of the free space and
// shrinks the free space by the strip it occupied.
func (l *subdivision) placeRun(run []float64) {
	if len(run) == 0 {
		return
	}
	var runArea float64
	for _, a := range run {
		runArea += a
	}
	totalArea := l.free.Area()
	if runArea == 0 || totalArea == 0 {
		return
	}
	share := runArea / totalArea

	if l.free.W < l.free.H {
		// Wide strip along the bottom of the free space.
		offset := l.free.X
		for _, a := range run {
			w := l.free.W * a / runArea
			l.placed = append(l.placed, geom.Rect{X: offset, Y: l.free.Y, W: w, H: l.free.H * share})
			offset += w
		}
		l.free = geom.Rect{
			X: l.free.X,
			Y: l.free.Y + l.free.H*share,
			W: l.free.W,
			H: l.free.H * (1 - share),
		}
		return
	}

	// Tall strip along the left edge.
	offset := l.free.Y
	for _, a := range run {
		h := l.free.H * a / runArea
		l.placed = append(l.placed, geom.Rect{X: l.free.X, Y: offset, W: l.free.W * share, H: h})
		offset += h
	}
	l.free = geom.Rect{
		X: l.free.X + l.free.W*share,
		Y: l.free.Y,
		W: l.free.W * (1 - share),
		H: l.free.H,
	}
}

// worstAspect returns the worst aspect ratio a run of areas would get when
// laid out along a side of length w.
func worstAspect(areas []float64, w float64) float64 {
	var minArea, maxArea, totalArea float64
	for i, a := range areas {
		totalArea += a
		if i == 0 || a < minArea {
			minArea = a
		}
		if i == 0 || a > maxArea {
			maxArea = a
		}
	}

	v1 := w * w * maxArea / (totalArea * totalArea)
	v2 := totalArea * totalArea / (w * w * minArea)
	return max(v1, v2)
}

// clampOverflows trims rectangles that stick out of the bounding square by
// floating-point slack.
func clampOverflows(bound geom.Rect, rects []geom.Rect) {
	for i, r := range rects {
		if delta := r.MaxX() - bound.MaxX(); delta > 0 {
			rects[i].W -= delta
		}
		if delta := r.MaxY() - bound.MaxY(); delta > 0 {
			rects[i].H -= delta
		}
	}
}
