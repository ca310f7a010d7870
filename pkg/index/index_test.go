package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passages/pkg/geo"
	"passages/pkg/model"
	"passages/pkg/palette"
)

func rec(narrative string, id int64, lat, lon float64) model.RouteRecord {
	return model.RouteRecord{
		NarrativeID: narrative,
		CartoID:     id,
		HasGeometry: true,
		Lat:         lat,
		Lon:         lon,
		Prior:       "travelled to",
		Expressed:   fmt.Sprintf("place %d", id),
		Post:        "by night",
	}
}

func TestGroup_OrdersByKeyAndDropsInvalid(t *testing.T) {
	records := []model.RouteRecord{
		rec("A", 3, 1, 1),
		{NarrativeID: "A", CartoID: 0}, // no geometry
		rec("B", 2, 5, 5),
		rec("A", 1, 0, 0),
		{CartoID: 9, HasGeometry: true}, // no narrative
		rec("A", 2, 0, 1),
	}

	g := Group(records, nil)
	require.Len(t, g, 2)

	a := g["A"]
	require.Len(t, a, 3)
	assert.Equal(t, "place 1", a[0].Passage.Expressed)
	assert.Equal(t, "place 2", a[1].Passage.Expressed)
	assert.Equal(t, "place 3", a[2].Passage.Expressed)
	for i, w := range a {
		assert.Equal(t, i, w.Index)
	}
	assert.Equal(t, geo.Point{Lat: 0, Lon: 1}, a[1].Point)
}

func TestGroup_UnkeyedRecordsFollowKeyed(t *testing.T) {
	unkeyed := func(name string) model.RouteRecord {
		r := rec("A", 0, 2, 2)
		r.Unkeyed = true
		r.Expressed = name
		return r
	}
	records := []model.RouteRecord{
		unkeyed("first unkeyed"),
		rec("A", 5, 1, 1),
		unkeyed("second unkeyed"),
		rec("A", 1, 0, 0),
	}

	a := Group(records, nil)["A"]
	require.Len(t, a, 4, "unkeyed records are kept")
	assert.Equal(t, "place 1", a[0].Passage.Expressed)
	assert.Equal(t, "place 5", a[1].Passage.Expressed)
	assert.Equal(t, "first unkeyed", a[2].Passage.Expressed)
	assert.Equal(t, "second unkeyed", a[3].Passage.Expressed)
	assert.Zero(t, MissingFraction(a))
}

func TestGroup_CountsMatch(t *testing.T) {
	var records []model.RouteRecord
	for i := 0; i < 50; i++ {
		records = append(records, rec(fmt.Sprint(i%4), int64(50-i), float64(i), float64(i)))
	}
	g := Group(records, geo.NewJitterer(0.1, 3))
	c := NewCollection(g, DefaultThreshold, mustAssigner(t, palette.StrategySorted))

	for _, id := range c.IDs() {
		n, ok := c.Get(id)
		require.True(t, ok)
		assert.Equal(t, n.Len(), len(n.Points()))
		assert.Equal(t, n.Len(), len(n.Passages()))
		assert.Equal(t, len(g[id]), n.Len())
	}
}

func TestGroup_JitterBounded(t *testing.T) {
	g := Group([]model.RouteRecord{rec("A", 1, 40, -75)}, geo.NewJitterer(0.1, 0))
	p := g["A"][0].Point
	assert.InDelta(t, 40, p.Lat, 0.1)
	assert.InDelta(t, -75, p.Lon, 0.1)
}

func TestGroup_StripsMarkup(t *testing.T) {
	r := rec("A", 1, 0, 0)
	r.Expressed = "<i>Boston</i>"
	g := Group([]model.RouteRecord{r}, nil)
	assert.Equal(t, "Boston", g["A"][0].Passage.Expressed)
}

func waypoints(total, missing int) []model.Waypoint {
	wps := make([]model.Waypoint, total)
	for i := range wps {
		wps[i] = model.Waypoint{Index: i, Passage: model.Passage{Prior: "a", Expressed: "b", Post: "c"}}
		if i < missing {
			if i%2 == 0 {
				wps[i].Passage.Prior = ""
			} else {
				wps[i].Passage.Post = ""
			}
		}
	}
	return wps
}

func TestCompleteness(t *testing.T) {
	tests := []struct {
		name         string
		total        int
		missing      int
		wantFraction float64
		wantExcluded bool
	}{
		{"Complete", 10, 0, 0, false},
		{"At Threshold", 10, 3, 0.3, false},
		{"Four Of Ten", 10, 4, 0.4, true},
		{"All Missing", 5, 5, 1, true},
		{"Zero Waypoints", 0, 0, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wps := waypoints(tt.total, tt.missing)
			assert.NotPanics(t, func() { MissingFraction(wps) })
			assert.InDelta(t, tt.wantFraction, MissingFraction(wps), 1e-9)
			assert.Equal(t, tt.wantExcluded, Incomplete(wps, DefaultThreshold))
		})
	}
}

func TestFilter(t *testing.T) {
	g := Grouped{
		"1": waypoints(10, 0),
		"2": waypoints(10, 4),
		"3": waypoints(0, 0),
		"4": waypoints(3, 0),
	}
	included, excluded := Filter(g, DefaultThreshold)
	assert.Equal(t, []string{"1", "4"}, included)
	assert.Equal(t, []string{"2", "3"}, excluded)
}

func mustAssigner(t *testing.T, s palette.Strategy) *palette.Assigner {
	t.Helper()
	a, err := palette.NewAssigner(s, 1)
	require.NoError(t, err)
	return a
}

func TestCollection(t *testing.T) {
	g := Grouped{}
	for i := 1; i <= 10; i++ {
		g[fmt.Sprint(i)] = waypoints(4, 0)
	}
	g["11"] = waypoints(10, 4)

	c := NewCollection(g, DefaultThreshold, mustAssigner(t, palette.StrategySorted))

	assert.Equal(t, 11, c.Len())
	assert.Equal(t, 10, c.IncludedCount())
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, c.Order())

	n, ok := c.Get("11")
	require.True(t, ok)
	assert.False(t, n.Included)
	assert.InDelta(t, 0.4, n.MissingFraction, 1e-9)

	// Excluded narratives keep a color after the included ones.
	pos, ok := c.Position("11")
	require.True(t, ok)
	assert.Equal(t, 10, pos)

	i1, _ := c.PaletteIndex("1")
	i9, _ := c.PaletteIndex("9")
	assert.Equal(t, i1, i9, "display positions 0 and 8 share a color")
	assert.Equal(t, c.Color("1"), c.Color("9"))

	_, ok = c.PaletteIndex("missing")
	assert.False(t, ok)
}

func TestCollection_OrderStableForSession(t *testing.T) {
	g := Grouped{}
	for i := 1; i <= 12; i++ {
		g[fmt.Sprint(i)] = waypoints(2, 0)
	}
	c := NewCollection(g, DefaultThreshold, mustAssigner(t, palette.StrategyShuffle))

	first := c.Order()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Order())
	}
	// Mutating the returned slice must not leak into the collection.
	first[0] = "x"
	assert.NotEqual(t, "x", c.Order()[0])
}

func TestEmpty(t *testing.T) {
	c := Empty()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Order())
	_, ok := c.Get("1")
	assert.False(t, ok)
}

func TestBuildAndLookup(t *testing.T) {
	records := []model.RouteRecord{
		rec("7", 3, 1, 1),
		rec("7", 1, 0, 0),
		rec("7", 2, 0, 1),
		{NarrativeID: "8", CartoID: 4, HasGeometry: true},
	}
	opts := DefaultOptions()
	opts.Jitter = 0

	c := Build(records, opts, mustAssigner(t, palette.StrategySorted))

	length, included, ok := c.Lookup("7")
	require.True(t, ok)
	assert.True(t, included)
	assert.Equal(t, 3, length)

	n, _ := c.Get("7")
	assert.Equal(t, 0.0, n.Waypoints[1].Point.Lat)
	assert.Equal(t, 1.0, n.Waypoints[1].Point.Lon)

	// Empty passage text makes "8" incomplete.
	_, included, ok = c.Lookup("8")
	require.True(t, ok)
	assert.False(t, included)

	_, _, ok = c.Lookup("nope")
	assert.False(t, ok)
}
