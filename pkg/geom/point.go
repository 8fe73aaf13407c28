// Package geom provides the planar value types shared by the layout
// algorithms: points, circles, and axis-aligned rectangles.
//
// All types are plain values in map units. The package has no opinion on
// coordinate reference systems; callers decide what X and Y mean.
package geom

import "math"

// Point is a position or offset in the plane.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Pt constructs a Point from x and y.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the point translated by p2.
func (p Point) Add(p2 Point) Point {
	return Point{X: p.X + p2.X, Y: p.Y + p2.Y}
}

// Sub returns the offset from p2 to p.
func (p Point) Sub(p2 Point) Point {
	return Point{X: p.X - p2.X, Y: p.Y - p2.Y}
}

// Mul returns the point scaled by a factor about the origin.
func (p Point) Mul(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(p2 Point) float64 {
	return math.Hypot(p.X-p2.X, p.Y-p2.Y)
}

// Norm returns the distance from the origin.
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Midpoint returns the point halfway between p and p2.
func (p Point) Midpoint(p2 Point) Point {
	return Point{X: (p.X + p2.X) / 2, Y: (p.Y + p2.Y) / 2}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.X) && !math.IsNaN(p.Y)
}
