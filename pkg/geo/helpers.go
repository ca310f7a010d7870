package geo

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LineString converts ordered points to an orb line.
func LineString(pts []Point) orb.LineString {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = p.Orb()
	}
	return ls
}

// Bound returns the bounding box of the given points.
func Bound(pts []Point) orb.Bound {
	mp := make(orb.MultiPoint, len(pts))
	for i, p := range pts {
		mp[i] = p.Orb()
	}
	return mp.Bound()
}

// StringProp safely extracts a string property from GeoJSON properties.
// Numeric values are formatted without a trailing fraction, so an id stored
// as 12 or "12" reads the same.
func StringProp(props geojson.Properties, key string) string {
	val, ok := props[key]
	if !ok || val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// IntProp extracts an integer property, reporting whether it was present and
// integral. Fractional numbers are rejected rather than truncated.
func IntProp(props geojson.Properties, key string) (int64, bool) {
	val, ok := props[key]
	if !ok || val == nil {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}
