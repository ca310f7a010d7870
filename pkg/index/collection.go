package index

import (
	"github.com/paulmach/orb"

	"passages/pkg/geo"
	"passages/pkg/model"
	"passages/pkg/palette"
)

// Collection is the immutable set of narratives built once from route data.
// Safe for concurrent reads.
type Collection struct {
	narratives map[string]*model.Narrative
	order      []string       // Display order of included narratives
	position   map[string]int // Palette position of every narrative
	ids        []string       // All ids, sorted
	extent     orb.Bound
	threshold  float64
}

// NewCollection builds the collection. Included narratives are ordered by the
// assigner; excluded ones keep a color, positioned after the included ones,
// so their map points can still be drawn.
func NewCollection(g Grouped, threshold float64, a *palette.Assigner) *Collection {
	included, excluded := Filter(g, threshold)

	c := &Collection{
		narratives: make(map[string]*model.Narrative, len(g)),
		position:   make(map[string]int, len(g)),
		threshold:  threshold,
	}

	c.order = a.Order(included)
	for i, id := range c.order {
		c.position[id] = i
	}
	for i, id := range a.Order(excluded) {
		c.position[id] = len(c.order) + i
	}

	var all []geo.Point
	for id, wps := range g {
		frozen := make([]model.Waypoint, len(wps))
		copy(frozen, wps)
		c.narratives[id] = &model.Narrative{
			ID:              id,
			Waypoints:       frozen,
			MissingFraction: MissingFraction(wps),
			Included:        !Incomplete(wps, threshold),
		}
		for _, w := range wps {
			all = append(all, w.Point)
		}
	}
	c.ids = append(append([]string{}, included...), excluded...)
	if len(all) > 0 {
		c.extent = geo.Bound(all)
	}
	return c
}

// Empty returns a collection with no narratives.
func Empty() *Collection {
	return &Collection{
		narratives: map[string]*model.Narrative{},
		position:   map[string]int{},
		threshold:  DefaultThreshold,
	}
}

// Get returns a narrative by id. The returned value must not be modified.
func (c *Collection) Get(id string) (*model.Narrative, bool) {
	n, ok := c.narratives[id]
	return n, ok
}

// Order returns the display order of included narratives.
func (c *Collection) Order() []string {
	return append([]string(nil), c.order...)
}

// IDs returns every narrative id, included ones first.
func (c *Collection) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Position returns the palette position of a narrative.
func (c *Collection) Position(id string) (int, bool) {
	p, ok := c.position[id]
	return p, ok
}

// PaletteIndex returns the palette index of a narrative.
func (c *Collection) PaletteIndex(id string) (int, bool) {
	p, ok := c.position[id]
	if !ok {
		return 0, false
	}
	return palette.Index(p), true
}

// Color returns the color of a narrative, or the first palette color if unknown.
func (c *Collection) Color(id string) string {
	return palette.Color(c.position[id])
}

// Len returns the number of narratives, including excluded ones.
func (c *Collection) Len() int {
	return len(c.narratives)
}

// IncludedCount returns the number of interactive narratives.
func (c *Collection) IncludedCount() int {
	return len(c.order)
}

// Extent returns the bounding box of all points.
func (c *Collection) Extent() orb.Bound {
	return c.extent
}

// Threshold returns the completeness threshold the collection was built with.
func (c *Collection) Threshold() float64 {
	return c.threshold
}

// Lookup returns the waypoint count of a narrative and whether it can be selected.
func (c *Collection) Lookup(id string) (length int, included bool, ok bool) {
	n, ok := c.narratives[id]
	if !ok {
		return 0, false, false
	}
	return n.Len(), n.Included, true
}
