// Package grid provides the transactional cell substrate under the
// simulation: a double-buffered 2D grid where objects claim cells for the
// next tick, conflicting claims are recorded for resolution, and a single
// atomic commit advances the whole grid once it is conflict-free. It also
// owns the neighborhood geometry and the factor-weighted movement model.
// See design doc Section 1.
package grid

import "math"

// Point is a location on the grid.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Unset is the sentinel position an object holds before its first claim or
// commit.
var Unset = Point{X: -1, Y: -1}

// MovementFactor is a point source of attraction or repulsion used when
// weighting candidate destinations. Strength may be negative (repulsive) or
// zero (inert). Visibility <= 0 means the factor is visible from any
// distance; otherwise it stops influencing objects farther away than
// Visibility.
type MovementFactor struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	Strength   int `json:"strength"`
	Visibility int `json:"visibility"`
}

// Distance returns the Euclidean distance from the factor to a point.
func (f MovementFactor) Distance(p Point) float64 {
	dx := float64(f.X - p.X)
	dy := float64(f.Y - p.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
