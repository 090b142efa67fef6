// File: internal/humanize/vector.go
package humanize

import "math"

// Point is an integer screen coordinate.
type Point struct {
	X, Y int
}

// Dist returns the Euclidean distance to the other point.
func (p Point) Dist(other Point) float64 {
	return math.Hypot(float64(other.X-p.X), float64(other.Y-p.Y))
}

// vec returns the point as a float vector.
func (p Point) vec() vector2 {
	return vector2{X: float64(p.X), Y: float64(p.Y)}
}

// vector2 is a float point/vector used internally for curve math.
type vector2 struct {
	X, Y float64
}

func (v vector2) Add(other vector2) vector2 {
	return vector2{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v vector2) Sub(other vector2) vector2 {
	return vector2{X: v.X - other.X, Y: v.Y - other.Y}
}

func (v vector2) Mul(scalar float64) vector2 {
	return vector2{X: v.X * scalar, Y: v.Y * scalar}
}

func (v vector2) Mag() float64 {
	// math.Hypot for numerical stability.
	return math.Hypot(v.X, v.Y)
}

// Perp returns the counter-clockwise perpendicular of the unit direction.
func (v vector2) Perp() vector2 {
	mag := v.Mag()
	if mag < 1e-9 {
		return vector2{}
	}
	return vector2{X: -v.Y / mag, Y: v.X / mag}
}

// round converts the vector to the nearest integer point.
func (v vector2) round() Point {
	return Point{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}
