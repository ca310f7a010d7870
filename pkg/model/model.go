package model

import "strings"

// RouteRecord is one geotagged row of the routes table.
type RouteRecord struct {
	NarrativeID string `json:"narrative_id"`
	CartoID     int64  `json:"cartodb_id"`        // Monotonic ordering key
	Unkeyed     bool   `json:"unkeyed,omitempty"` // No usable cartodb_id; ordered after keyed rows

	// Coordinates (absent geometry leaves HasGeometry false)
	HasGeometry bool    `json:"has_geometry"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`

	// Passage text around the place name
	Prior     string `json:"placename_prior"`
	Expressed string `json:"placename_expressed"`
	Post      string `json:"placename_post"`
}

// Valid reports whether the record can become a waypoint.
func (r *RouteRecord) Valid() bool {
	return r.HasGeometry && r.NarrativeID != ""
}

// Metadata describes the source text a narrative was extracted from.
type Metadata struct {
	NarrativeID       string `json:"narrative_id"`
	Author            string `json:"author"`
	Img               string `json:"img"`
	Title             string `json:"title"`
	ShortTitle        string `json:"short_title"`
	DateOfPublication string `json:"date_of_publication"`
	Filename          string `json:"filename"`
}

// DisplayTitle returns the best available title.
func (m *Metadata) DisplayTitle() string {
	if m.ShortTitle != "" {
		return m.ShortTitle
	}
	return m.Title
}

// CardReady reports whether the fields required for a narrative card are present.
func (m *Metadata) CardReady() bool {
	return strings.TrimSpace(m.Img) != "" &&
		strings.TrimSpace(m.Author) != "" &&
		strings.TrimSpace(m.ShortTitle) != ""
}

// TableReady reports whether the record belongs in the texts table. Only the
// publication date is required; other columns may be blank.
func (m *Metadata) TableReady() bool {
	return strings.TrimSpace(m.DateOfPublication) != ""
}
