package api

import (
	"net/http"

	"passages/pkg/distance"
	"passages/pkg/geo"
	"passages/pkg/ingest"
	"passages/pkg/model"
	"passages/pkg/present"
)

// NarrativeHandler serves the ingested collection and the metadata joined
// onto it. It only reads immutable collections, so it never touches the
// engine loop.
type NarrativeHandler struct {
	join *ingest.Join
}

// NewNarrativeHandler creates a new NarrativeHandler.
func NewNarrativeHandler(j *ingest.Join) *NarrativeHandler {
	return &NarrativeHandler{join: j}
}

// NarrativeDetail is one narrative with its waypoints and cumulative distances.
type NarrativeDetail struct {
	ID              string           `json:"id"`
	Position        int              `json:"position"`
	Color           string           `json:"color"`
	Included        bool             `json:"included"`
	MissingFraction float64          `json:"missing_fraction"`
	Unit            geo.Unit         `json:"unit"`
	Distances       []float64        `json:"distances"`
	Waypoints       []model.Waypoint `json:"waypoints"`
	Metadata        *model.Metadata  `json:"metadata,omitempty"`
}

// HandleList returns the narrative cards. Cards need both tables.
func (h *NarrativeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	c, meta, ok := h.join.Joined()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "narratives not loaded")
		return
	}
	writeJSON(w, http.StatusOK, present.Cards(c, meta))
}

// HandleTexts returns the source texts table.
func (h *NarrativeHandler) HandleTexts(w http.ResponseWriter, r *http.Request) {
	_, meta, ok := h.join.Joined()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "narratives not loaded")
		return
	}
	writeJSON(w, http.StatusOK, present.Texts(meta))
}

// HandleGet returns one narrative. The optional "unit" query parameter
// selects the distance unit (default miles).
func (h *NarrativeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !h.join.RoutesReady() {
		writeError(w, http.StatusServiceUnavailable, "narratives not loaded")
		return
	}
	unit, err := geo.ParseUnit(r.URL.Query().Get("unit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := h.join.Collection()
	id := r.PathValue("id")
	n, ok := c.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown narrative: "+id)
		return
	}
	pos, _ := c.Position(id)

	resp := NarrativeDetail{
		ID:              n.ID,
		Position:        pos,
		Color:           c.Color(id),
		Included:        n.Included,
		MissingFraction: n.MissingFraction,
		Unit:            unit,
		Distances:       cumulative(distance.Legs(n.Points(), unit)),
		Waypoints:       n.Waypoints,
	}
	if _, meta, joined := h.join.Joined(); joined {
		for i := range meta {
			if meta[i].NarrativeID == id {
				resp.Metadata = &meta[i]
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleLine returns the narrative path as a GeoJSON LineString feature.
func (h *NarrativeHandler) HandleLine(w http.ResponseWriter, r *http.Request) {
	if !h.join.RoutesReady() {
		writeError(w, http.StatusServiceUnavailable, "narratives not loaded")
		return
	}
	id := r.PathValue("id")
	f, ok := present.NarrativeLine(h.join.Collection(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown narrative: "+id)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// HandlePoints returns every waypoint as a GeoJSON FeatureCollection. Before
// the routes arrive the collection is empty.
func (h *NarrativeHandler) HandlePoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, present.MapPoints(h.join.Collection()))
}

func cumulative(legs []float64) []float64 {
	out := make([]float64, len(legs))
	total := 0.0
	for i, l := range legs {
		total += l
		out[i] = total
	}
	return out
}
