// Package present turns engine activity into messages for the front-end:
// visual effects, narrative cards and texts table rows.
package present

import (
	"time"

	"passages/pkg/geo"
)

// Kind names a visual effect.
type Kind string

const (
	KindClear          Kind = "clear"
	KindFocusNarrative Kind = "focus_narrative"
	KindShowPassages   Kind = "show_passages"
	KindRevealWaypoint Kind = "reveal_waypoint"
	KindCamera         Kind = "camera"
	KindHighlight      Kind = "highlight"
	KindCardScroll     Kind = "card_scroll"
	KindProgress       Kind = "progress"
	KindCounter        Kind = "counter"
	KindButtons        Kind = "buttons"
)

// Camera describes a map fly-to.
type Camera struct {
	Center   geo.Point `json:"center"`
	Zoom     int       `json:"zoom"`
	Duration float64   `json:"duration_s"`
}

// Effect is one visual update. Only the fields relevant to Kind are set.
type Effect struct {
	Seq         uint64 `json:"seq"`
	Kind        Kind   `json:"kind"`
	Generation  uint64 `json:"generation"`
	NarrativeID string `json:"narrative_id,omitempty"`
	Index       int    `json:"index"`

	Color    string     `json:"color,omitempty"`
	Point    *geo.Point `json:"point,omitempty"`
	Camera   *Camera    `json:"camera,omitempty"`
	Percent  float64    `json:"percent"`
	Value    int        `json:"value"`
	Unit     string     `json:"unit,omitempty"`
	Prev     bool       `json:"prev,omitempty"`
	Next     bool       `json:"next,omitempty"`
	Controls bool       `json:"controls,omitempty"` // Clear button and distance container visible
}

// Sink receives effects. Emit must not block; an effect that cannot be
// delivered is dropped.
type Sink interface {
	Emit(Effect)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Effect)

// Emit calls f.
func (f SinkFunc) Emit(e Effect) { f(e) }

// Discard drops every effect.
var Discard Sink = SinkFunc(func(Effect) {})

// Clear resets every visual to the idle look.
func Clear(gen uint64) Effect {
	return Effect{Kind: KindClear, Generation: gen}
}

// FocusNarrative dims every narrative except id and shows the clear button
// and distance container.
func FocusNarrative(gen uint64, id, color string) Effect {
	return Effect{Kind: KindFocusNarrative, Generation: gen, NarrativeID: id, Color: color, Controls: true}
}

// ShowPassages displays the passage cards of a narrative.
func ShowPassages(gen uint64, id string) Effect {
	return Effect{Kind: KindShowPassages, Generation: gen, NarrativeID: id}
}

// RevealWaypoint draws one point of the narrative line.
func RevealWaypoint(gen uint64, id string, idx int, p geo.Point, color string) Effect {
	return Effect{Kind: KindRevealWaypoint, Generation: gen, NarrativeID: id, Index: idx, Point: &p, Color: color}
}

// FlyTo moves the map camera.
func FlyTo(gen uint64, id string, idx int, center geo.Point, zoom int, d time.Duration) Effect {
	return Effect{
		Kind: KindCamera, Generation: gen, NarrativeID: id, Index: idx,
		Camera: &Camera{Center: center, Zoom: zoom, Duration: d.Seconds()},
	}
}

// Highlight marks passage idx active and dims the other points of the narrative.
func Highlight(gen uint64, id string, idx int) Effect {
	return Effect{Kind: KindHighlight, Generation: gen, NarrativeID: id, Index: idx}
}

// CardScroll scrolls the card list. Index -1 scrolls to the narrative card itself.
func CardScroll(gen uint64, id string, idx int) Effect {
	return Effect{Kind: KindCardScroll, Generation: gen, NarrativeID: id, Index: idx}
}

// Progress sets the progress bar width in percent.
func Progress(gen uint64, id string, percent float64) Effect {
	return Effect{Kind: KindProgress, Generation: gen, NarrativeID: id, Percent: percent}
}

// Counter shows a travelled distance value.
func Counter(gen uint64, value int, unit geo.Unit) Effect {
	return Effect{Kind: KindCounter, Generation: gen, Value: value, Unit: string(unit)}
}

// Buttons sets the navigation control state.
func Buttons(gen uint64, prev, next bool) Effect {
	return Effect{Kind: KindButtons, Generation: gen, Prev: prev, Next: next}
}
