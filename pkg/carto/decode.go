package carto

import (
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"passages/pkg/geo"
	"passages/pkg/model"
)

// DecodeRoutes parses a GeoJSON FeatureCollection of route rows.
// Rows without a usable cartodb_id are kept and marked Unkeyed; the index
// orders them after keyed rows. Rows without a point geometry are kept with
// HasGeometry false. dropped counts rows the index builder will discard.
func DecodeRoutes(data []byte) (records []model.RouteRecord, dropped int, err error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse routes geojson: %w", err)
	}

	records = make([]model.RouteRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		id, ok := geo.IntProp(f.Properties, "cartodb_id")
		r := model.RouteRecord{
			NarrativeID: geo.StringProp(f.Properties, "narrative_id"),
			CartoID:     id,
			Unkeyed:     !ok,
			Prior:       rawProp(f.Properties, "placename_prior"),
			Expressed:   rawProp(f.Properties, "placename_expressed"),
			Post:        rawProp(f.Properties, "placename_post"),
		}
		if p, ok := f.Geometry.(orb.Point); ok {
			r.HasGeometry = true
			r.Lat = p.Lat()
			r.Lon = p.Lon()
		}
		if !r.Valid() {
			dropped++
		}
		if r.Unkeyed {
			slog.Debug("Carto: route row without cartodb_id", "narrative_id", r.NarrativeID)
		}
		records = append(records, r)
	}
	return records, dropped, nil
}

// DecodeMetadata parses a GeoJSON FeatureCollection of narrative metadata rows.
// Rows without a narrative_id are dropped.
func DecodeMetadata(data []byte) (meta []model.Metadata, dropped int, err error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse metadata geojson: %w", err)
	}

	meta = make([]model.Metadata, 0, len(fc.Features))
	for _, f := range fc.Features {
		id := geo.StringProp(f.Properties, "narrative_id")
		if id == "" {
			dropped++
			continue
		}
		meta = append(meta, model.Metadata{
			NarrativeID:       id,
			Author:            geo.StringProp(f.Properties, "author"),
			Img:               geo.StringProp(f.Properties, "img"),
			Title:             geo.StringProp(f.Properties, "title"),
			ShortTitle:        geo.StringProp(f.Properties, "short_title"),
			DateOfPublication: geo.StringProp(f.Properties, "date_of_publication"),
			Filename:          geo.StringProp(f.Properties, "filename"),
		})
	}
	return meta, dropped, nil
}

// rawProp keeps surrounding whitespace; passage text is cleaned at index build.
func rawProp(props geojson.Properties, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return geo.StringProp(props, key)
}
