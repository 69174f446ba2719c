// Package geometry provides the 2D primitives used throughout the editor core.
package geometry

import (
	"math"
)

// Point represents a 2D point or delta in workspace units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint creates a new Point.
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point) Scale(factor float64) Point {
	return Point{X: p.X * factor, Y: p.Y * factor}
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Equals reports whether two points are equal within tolerance.
func (p Point) Equals(other Point) bool {
	const eps = 1e-9
	return math.Abs(p.X-other.X) < eps && math.Abs(p.Y-other.Y) < eps
}

// Rect represents an axis-aligned rectangle by its four edges in workspace
// units. A Rect is well-formed when Right >= Left and Bottom >= Top; use
// Normalized to repair a rect whose edges were inverted by a resize.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// NewRect creates a rect from an origin and a size.
func NewRect(left, top, width, height float64) Rect {
	return Rect{Left: left, Top: top, Right: left + width, Bottom: top + height}
}

// Width returns the rect width. Always non-negative.
func (r Rect) Width() float64 {
	return math.Abs(r.Right - r.Left)
}

// Height returns the rect height. Always non-negative.
func (r Rect) Height() float64 {
	return math.Abs(r.Bottom - r.Top)
}

// Normalized returns a well-formed copy of the rect, swapping edges that a
// resize has inverted. The input is not modified.
func (r Rect) Normalized() Rect {
	if r.Right < r.Left {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Bottom < r.Top {
		r.Top, r.Bottom = r.Bottom, r.Top
	}
	return r
}

// Translate returns the rect shifted by a delta.
func (r Rect) Translate(d Point) Rect {
	return Rect{
		Left:   r.Left + d.X,
		Top:    r.Top + d.Y,
		Right:  r.Right + d.X,
		Bottom: r.Bottom + d.Y,
	}
}

// ContainsStrict reports whether the point lies strictly inside the rect.
// Points on the boundary are outside.
func (r Rect) ContainsStrict(p Point) bool {
	return p.X > r.Left && p.X < r.Right && p.Y > r.Top && p.Y < r.Bottom
}

// Intersects reports whether two rects overlap.
func (r Rect) Intersects(other Rect) bool {
	return r.Left < other.Right && other.Left < r.Right &&
		r.Top < other.Bottom && other.Top < r.Bottom
}

// Origin returns the top-left corner.
func (r Rect) Origin() Point {
	return Point{X: r.Left, Y: r.Top}
}
