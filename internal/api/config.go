package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"passages/pkg/config"
	"passages/pkg/core"
	"passages/pkg/geo"
)

// ConfigHandler handles the runtime-adjustable settings. Changes are stored
// through the provider and applied to the engine for subsequent transitions.
type ConfigHandler struct {
	cfgProv config.Provider
	appCfg  *config.Config
	engine  *core.Engine
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(cfg config.Provider, e *core.Engine) *ConfigHandler {
	return &ConfigHandler{
		cfgProv: cfg,
		appCfg:  cfg.AppConfig(),
		engine:  e,
	}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	Units        string `json:"units"`
	FlyZoom      int    `json:"fly_zoom"`
	Source       string `json:"source"`
	PaletteOrder string `json:"palette_order"`
	CacheBackend string `json:"cache_backend"`
}

// ConfigRequest represents the config API request for updates.
type ConfigRequest struct {
	Units   string `json:"units,omitempty"`
	FlyZoom *int   `json:"fly_zoom,omitempty"` // Pointer to detect missing
}

// HandleConfig is a unified handler for all config-related methods, facilitating CORS/OPTIONS.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGetConfig(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetConfig returns the current configuration.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, ConfigResponse{
		Units:        h.cfgProv.Units(ctx),
		FlyZoom:      h.cfgProv.FlyZoom(ctx),
		Source:       h.appCfg.Source.Kind,
		PaletteOrder: h.appCfg.Palette.Order,
		CacheBackend: h.appCfg.Cache.Backend,
	})
}

// HandleSetConfig updates the configuration.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req ConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ctx := r.Context()

	if req.Units != "" {
		unit, err := geo.ParseUnit(req.Units)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.cfgProv.SetUnits(ctx, string(unit)); err != nil {
			slog.Error("Failed to save units", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.engine.Do(ctx, func() { h.engine.SetUnit(unit) }); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		slog.Debug("Config updated", "units", unit)
	}

	if req.FlyZoom != nil {
		zoom := *req.FlyZoom
		if err := h.cfgProv.SetFlyZoom(ctx, zoom); err != nil {
			slog.Error("Failed to save fly zoom", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.engine.Do(ctx, func() { h.engine.SetFlyZoom(zoom) }); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		slog.Debug("Config updated", "fly_zoom", zoom)
	}

	// Return updated config
	h.HandleGetConfig(w, r)
}
