package geom

// Rect is an axis-aligned rectangle anchored at its minimum corner.
type Rect struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
	W float64 `json:"w" bson:"w"`
	H float64 `json:"h" bson:"h"`
}

// Area returns the area of the rectangle.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// MaxX returns the x coordinate of the right edge.
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY returns the y coordinate of the top edge.
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether a point lies inside or on the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// ContainsRect reports whether r2 lies entirely inside r, allowing a
// tolerance tol on each edge.
func (r Rect) ContainsRect(r2 Rect, tol float64) bool {
	return r2.X >= r.X-tol && r2.Y >= r.Y-tol &&
		r2.MaxX() <= r.MaxX()+tol && r2.MaxY() <= r.MaxY()+tol
}

// Overlaps reports whether the interiors of r and r2 intersect. Rectangles
// that share only an edge within tol do not count as overlapping.
func (r Rect) Overlaps(r2 Rect, tol float64) bool {
	return r.X < r2.MaxX()-tol && r2.X < r.MaxX()-tol &&
		r.Y < r2.MaxY()-tol && r2.Y < r.MaxY()-tol
}

// Translate returns the rectangle moved by the given offset.
func (r Rect) Translate(off Point) Rect {
	return Rect{X: r.X + off.X, Y: r.Y + off.Y, W: r.W, H: r.H}
}

// Union returns the smallest rectangle containing both r and r2.
func (r Rect) Union(r2 Rect) Rect {
	minX := min(r.X, r2.X)
	minY := min(r.Y, r2.Y)
	maxX := max(r.MaxX(), r2.MaxX())
	maxY := max(r.MaxY(), r2.MaxY())
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
