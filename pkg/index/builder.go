// Package index turns geotagged route records into ordered per-narrative
// waypoint sequences and the immutable collection built from them.
package index

import (
	"log/slog"
	"sort"

	"passages/pkg/geo"
	"passages/pkg/model"
	"passages/pkg/palette"
	"passages/pkg/textproc"
)

// Options controls how records become waypoints.
type Options struct {
	Jitter    float64 // Max offset per axis in degrees; 0 disables
	Seed      int64   // Jitter seed; 0 is not reproducible
	Threshold float64 // Missing-text fraction above which a narrative is excluded
}

// DefaultOptions returns the reference settings.
func DefaultOptions() Options {
	return Options{
		Jitter:    0.1,
		Threshold: DefaultThreshold,
	}
}

// Grouped maps a narrative id to its ordered waypoints.
type Grouped map[string][]model.Waypoint

// Group sorts records by their ordering key and groups them by narrative.
// Unkeyed records follow the keyed ones in input order.
// Records without geometry or narrative id are dropped silently.
// Each kept record yields exactly one waypoint, so point and passage counts
// always match.
func Group(records []model.RouteRecord, j *geo.Jitterer) Grouped {
	sorted := make([]model.RouteRecord, 0, len(records))
	dropped := 0
	for i := range records {
		if !records[i].Valid() {
			dropped++
			continue
		}
		sorted = append(sorted, records[i])
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		ra, rb := &sorted[a], &sorted[b]
		if ra.Unkeyed != rb.Unkeyed {
			return rb.Unkeyed
		}
		if ra.Unkeyed {
			return false
		}
		return ra.CartoID < rb.CartoID
	})

	out := make(Grouped)
	for i := range sorted {
		r := &sorted[i]
		wps := out[r.NarrativeID]
		out[r.NarrativeID] = append(wps, model.Waypoint{
			Index: len(wps),
			Point: j.Apply(geo.Point{Lat: r.Lat, Lon: r.Lon}),
			Passage: model.Passage{
				Prior:     textproc.PlainText(r.Prior),
				Expressed: textproc.PlainText(r.Expressed),
				Post:      textproc.PlainText(r.Post),
			},
		})
	}

	if dropped > 0 {
		slog.Debug("Index: dropped records without geometry or narrative", "dropped", dropped, "kept", len(sorted))
	}
	return out
}

// Build groups records and assembles the collection in one step.
func Build(records []model.RouteRecord, opts Options, a *palette.Assigner) *Collection {
	g := Group(records, geo.NewJitterer(opts.Jitter, opts.Seed))
	return NewCollection(g, opts.Threshold, a)
}
