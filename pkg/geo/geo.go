package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Orb converts the point to an orb.Point (lon, lat order).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// FromOrb converts an orb.Point (lon, lat order) to a Point.
func FromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// Unit selects the unit used for arc distances.
type Unit string

const (
	Miles         Unit = "miles"
	Kilometers    Unit = "kilometers"
	NauticalMiles Unit = "nautical"
)

// statute miles per degree of arc (60 nautical miles * 1.1515)
const milesPerDegree = 60 * 1.1515

// ParseUnit accepts the long names and the single-letter codes M, K, N.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "mi", "miles":
		return Miles, nil
	case "k", "km", "kilometers":
		return Kilometers, nil
	case "n", "nm", "nautical":
		return NauticalMiles, nil
	}
	return "", fmt.Errorf("unknown distance unit %q", s)
}

// ArcDistance calculates the great-circle distance between two points using the
// spherical law of cosines.
func ArcDistance(p1, p2 Point, unit Unit) float64 {
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)
	theta := (p1.Lon - p2.Lon) * (math.Pi / 180.0)

	cos := math.Sin(lat1)*math.Sin(lat2) + math.Cos(lat1)*math.Cos(lat2)*math.Cos(theta)
	// Rounding can push identical points just past 1.
	cos = math.Max(-1, math.Min(1, cos))

	dist := math.Acos(cos) * (180.0 / math.Pi) * milesPerDegree

	switch unit {
	case Kilometers:
		dist *= 1.609344
	case NauticalMiles:
		dist *= 0.8684
	}
	return dist
}
