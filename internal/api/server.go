package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"passages/pkg/metrics"
	"passages/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, nar *NarrativeHandler, sel *SelectionHandler, stream *StreamHandler, stats *StatsHandler, cfg *ConfigHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health & version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Collection (read-only)
	mux.HandleFunc("GET /api/narratives", nar.HandleList)
	mux.HandleFunc("GET /api/narratives/{id}", nar.HandleGet)
	mux.HandleFunc("GET /api/narratives/{id}/line", nar.HandleLine)
	mux.HandleFunc("GET /api/map/points", nar.HandlePoints)
	mux.HandleFunc("GET /api/texts", nar.HandleTexts)

	// 3. Selection commands
	mux.HandleFunc("GET /api/state", sel.HandleState)
	mux.HandleFunc("POST /api/select/{id}", sel.HandleSelect)
	mux.HandleFunc("POST /api/navigate", sel.HandleNavigate)
	mux.HandleFunc("POST /api/jump", sel.HandleJump)
	mux.HandleFunc("POST /api/clear", sel.HandleClear)

	// 4. Effect stream
	mux.Handle("GET /ws", stream)

	// 5. Diagnostics
	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("/api/config", cfg.HandleConfig)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/recent", handleRecentLogs)
	mux.Handle("GET /metrics", metrics.Handler())

	// 6. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
