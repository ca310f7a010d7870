// Package distance computes how far a reader has travelled along a narrative
// and plans the animated counter that displays it.
package distance

import (
	"passages/pkg/geo"
)

// Travelled sums the arc distance between consecutive points from 0 to idx.
// It is 0 for idx <= 0; idx beyond the last point is clamped.
func Travelled(points []geo.Point, idx int, unit geo.Unit) float64 {
	if idx <= 0 || len(points) < 2 {
		return 0
	}
	if idx > len(points)-1 {
		idx = len(points) - 1
	}
	total := 0.0
	for i := 1; i <= idx; i++ {
		total += geo.ArcDistance(points[i-1], points[i], unit)
	}
	return total
}

// Legs returns the distance of every step, where Legs()[i] is the distance
// from point i-1 to point i and Legs()[0] is 0.
func Legs(points []geo.Point, unit geo.Unit) []float64 {
	legs := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		legs[i] = geo.ArcDistance(points[i-1], points[i], unit)
	}
	return legs
}
