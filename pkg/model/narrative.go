package model

import (
	"passages/pkg/geo"
)

// Passage is the text surrounding a place name reference.
type Passage struct {
	Prior     string `json:"prior"`
	Expressed string `json:"expressed"`
	Post      string `json:"post"`
}

// Missing reports whether the text before or after the place name is empty.
func (p Passage) Missing() bool {
	return p.Prior == "" || p.Post == ""
}

// Waypoint pairs one location with one passage at a fixed position.
type Waypoint struct {
	Index   int       `json:"index"`
	Point   geo.Point `json:"point"`
	Passage Passage   `json:"passage"`
}

// Narrative is an ordered journey through waypoints.
// Waypoints are immutable once the collection is built.
type Narrative struct {
	ID        string     `json:"id"`
	Waypoints []Waypoint `json:"waypoints"`

	// Completeness
	MissingFraction float64 `json:"missing_fraction"`
	Included        bool    `json:"included"`
}

// Len returns the number of waypoints.
func (n *Narrative) Len() int {
	return len(n.Waypoints)
}

// Points returns the waypoint locations in order.
func (n *Narrative) Points() []geo.Point {
	pts := make([]geo.Point, len(n.Waypoints))
	for i, w := range n.Waypoints {
		pts[i] = w.Point
	}
	return pts
}

// Passages returns the waypoint passages in order.
func (n *Narrative) Passages() []Passage {
	ps := make([]Passage, len(n.Waypoints))
	for i, w := range n.Waypoints {
		ps[i] = w.Passage
	}
	return ps
}
