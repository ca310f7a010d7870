package present

import (
	"github.com/paulmach/orb/geojson"

	"passages/pkg/geo"
	"passages/pkg/index"
)

// MapPoints returns every waypoint of every narrative as a point feature,
// included narratives first. Excluded narratives are drawn but flagged.
func MapPoints(c *index.Collection) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, id := range c.IDs() {
		n, _ := c.Get(id)
		color := c.Color(id)
		for _, w := range n.Waypoints {
			f := geojson.NewFeature(w.Point.Orb())
			f.Properties["narrative_id"] = id
			f.Properties["index"] = w.Index
			f.Properties["color"] = color
			f.Properties["included"] = n.Included
			fc.Append(f)
		}
	}
	return fc
}

// NarrativeLine returns the path of a narrative as a LineString feature.
func NarrativeLine(c *index.Collection, id string) (*geojson.Feature, bool) {
	n, ok := c.Get(id)
	if !ok {
		return nil, false
	}
	f := geojson.NewFeature(geo.LineString(n.Points()))
	f.Properties["narrative_id"] = id
	f.Properties["color"] = c.Color(id)
	f.Properties["waypoints"] = n.Len()
	return f, true
}
