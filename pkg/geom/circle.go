package geom

import "math"

// Circle is a circle described by center and radius.
type Circle struct {
	Center Point   `json:"center" bson:"center"`
	Radius float64 `json:"radius" bson:"radius"`
}

// Area returns the area of the circle.
func (c Circle) Area() float64 {
	return math.Pi * c.Radius * c.Radius
}

// Contains reports whether a point lies inside or on the circle.
func (c Circle) Contains(p Point) bool {
	return c.Center.Distance(p) <= c.Radius
}

// ContainsCircle reports whether c2 lies entirely inside c, allowing a
// tolerance tol on the boundary.
func (c Circle) ContainsCircle(c2 Circle, tol float64) bool {
	return c.Center.Distance(c2.Center)+c2.Radius <= c.Radius+tol
}

// Overlaps reports whether the interiors of c and c2 intersect. Circles
// that are tangent within tol do not count as overlapping.
func (c Circle) Overlaps(c2 Circle, tol float64) bool {
	return c.Center.Distance(c2.Center) < c.Radius+c2.Radius-tol
}

// Translate returns the circle moved by the given offset.
func (c Circle) Translate(off Point) Circle {
	return Circle{Center: c.Center.Add(off), Radius: c.Radius}
}

// Scale returns the circle with center and radius scaled about the origin.
func (c Circle) Scale(f float64) Circle {
	return Circle{Center: c.Center.Mul(f), Radius: c.Radius * f}
}

// Bounds returns the bounding rectangle of the circle.
func (c Circle) Bounds() Rect {
	return Rect{
		X: c.Center.X - c.Radius,
		Y: c.Center.Y - c.Radius,
		W: 2 * c.Radius,
		H: 2 * c.Radius,
	}
}
