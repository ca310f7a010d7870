package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"passages/pkg/ingest"
	"passages/pkg/present"
	"passages/pkg/store"
	"passages/pkg/tracker"
)

// StatsHandler reports collection size, upstream usage and stream health.
type StatsHandler struct {
	tracker *tracker.Tracker
	join    *ingest.Join
	hub     *present.Hub
	runs    store.IngestStore
	tables  []string
}

// NewStatsHandler creates a new StatsHandler. runs may be nil; tables lists
// the source tables whose last fetch is reported.
func NewStatsHandler(t *tracker.Tracker, j *ingest.Join, hub *present.Hub, runs store.IngestStore, tables ...string) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		join:    j,
		hub:     hub,
		runs:    runs,
		tables:  tables,
	}
}

type ProviderStatsDTO struct {
	CacheHits     int64     `json:"cache_hits"`
	CacheMisses   int64     `json:"cache_misses"`
	APISuccess    int64     `json:"api_success"`
	APIZeroResult int64     `json:"api_zero"`
	APIFailures   int64     `json:"api_errors"`
	HitRate       int64     `json:"hit_rate"`
	LastSuccess   time.Time `json:"last_success"`
	LastFailure   time.Time `json:"last_failure"`
}

type NarrativeStats struct {
	Total          int  `json:"total"`
	Complete       int  `json:"complete"`
	Excluded       int  `json:"excluded"`
	RoutesLoaded   bool `json:"routes_loaded"`
	MetadataLoaded bool `json:"metadata_loaded"`
}

type StreamStats struct {
	Subscribers int    `json:"subscribers"`
	Dropped     uint64 `json:"dropped"`
	Sequence    uint64 `json:"sequence"`
}

type IngestDTO struct {
	Source  string    `json:"source"`
	Records int       `json:"records"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

type StatsResponse struct {
	Narratives NarrativeStats              `json:"narratives"`
	Providers  map[string]ProviderStatsDTO `json:"providers"`
	Stream     StreamStats                 `json:"stream"`
	Ingest     map[string]IngestDTO        `json:"ingest"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := h.join.Collection()
	resp := StatsResponse{
		Narratives: NarrativeStats{
			Total:          c.Len(),
			Complete:       c.IncludedCount(),
			Excluded:       c.Len() - c.IncludedCount(),
			RoutesLoaded:   h.join.RoutesReady(),
			MetadataLoaded: h.join.MetadataReady(),
		},
		Stream: StreamStats{
			Subscribers: h.hub.Count(),
			Dropped:     h.hub.Dropped(),
			Sequence:    h.hub.Sequence(),
		},
		Providers: make(map[string]ProviderStatsDTO),
		Ingest:    make(map[string]IngestDTO),
	}

	for provider, stats := range h.tracker.Snapshot() {
		totalCache := stats.CacheHits + stats.CacheMisses
		hitRate := int64(0)
		if totalCache > 0 {
			hitRate = (stats.CacheHits * 100) / totalCache
		}
		resp.Providers[provider] = ProviderStatsDTO{
			CacheHits:     stats.CacheHits,
			CacheMisses:   stats.CacheMisses,
			APISuccess:    stats.APISuccess,
			APIZeroResult: stats.APIZeroResult,
			APIFailures:   stats.APIFailures,
			HitRate:       hitRate,
			LastSuccess:   stats.LastSuccess,
			LastFailure:   stats.LastFailure,
		}
	}

	if h.runs != nil {
		for _, table := range h.tables {
			run, err := h.runs.LastIngest(r.Context(), table)
			if err != nil {
				slog.Warn("Stats: failed to read ingest history", "table", table, "error", err)
				continue
			}
			if run == nil {
				continue
			}
			resp.Ingest[table] = IngestDTO{
				Source:  run.Source,
				Records: run.Records,
				Error:   run.Err,
				At:      run.CreatedAt,
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
