package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"passages/pkg/core"
	"passages/pkg/selection"
)

// SelectionHandler forwards reader commands to the engine loop.
type SelectionHandler struct {
	engine *core.Engine
}

// NewSelectionHandler creates a new SelectionHandler.
func NewSelectionHandler(e *core.Engine) *SelectionHandler {
	return &SelectionHandler{engine: e}
}

// CommandResponse reports the outcome of a command and the state after it.
type CommandResponse struct {
	Moved    bool          `json:"moved"`
	Boundary bool          `json:"boundary"`
	Snapshot core.Snapshot `json:"snapshot"`
}

type navigateRequest struct {
	Delta *int `json:"delta"`
}

type jumpRequest struct {
	Index *int `json:"index"`
}

// HandleState returns the engine snapshot.
func (h *SelectionHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	var snap core.Snapshot
	if err := h.engine.Do(r.Context(), func() { snap = h.engine.Snapshot() }); err != nil {
		h.writeLoopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleSelect toggles the narrative named in the path.
func (h *SelectionHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.run(w, r.Context(), func() (selection.Outcome, error) {
		st, err := h.engine.Select(id)
		return selection.Outcome{State: st, Moved: err == nil}, err
	})
}

// HandleNavigate moves the active waypoint by {"delta": n}.
func (h *SelectionHandler) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == nil {
		writeError(w, http.StatusBadRequest, `body must be {"delta": n}`)
		return
	}
	h.run(w, r.Context(), func() (selection.Outcome, error) {
		return h.engine.Navigate(*req.Delta)
	})
}

// HandleJump moves the active waypoint to {"index": n}.
func (h *SelectionHandler) HandleJump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, `body must be {"index": n}`)
		return
	}
	h.run(w, r.Context(), func() (selection.Outcome, error) {
		return h.engine.Jump(*req.Index)
	})
}

// HandleClear returns the engine to Idle.
func (h *SelectionHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.run(w, r.Context(), func() (selection.Outcome, error) {
		return selection.Outcome{State: h.engine.Clear(), Moved: true}, nil
	})
}

// run executes cmd and takes the snapshot in the same loop turn, so the
// reply reflects exactly this command.
func (h *SelectionHandler) run(w http.ResponseWriter, ctx context.Context, cmd func() (selection.Outcome, error)) {
	var out selection.Outcome
	var cmdErr error
	var snap core.Snapshot
	err := h.engine.Do(ctx, func() {
		out, cmdErr = cmd()
		snap = h.engine.Snapshot()
	})
	if err != nil {
		h.writeLoopError(w, err)
		return
	}
	if cmdErr != nil {
		writeError(w, commandStatus(cmdErr), cmdErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Moved: out.Moved, Boundary: out.Boundary, Snapshot: snap})
}

func (h *SelectionHandler) writeLoopError(w http.ResponseWriter, err error) {
	slog.Warn("Engine unavailable", "error", err)
	writeError(w, http.StatusServiceUnavailable, err.Error())
}

// commandStatus maps selection errors to HTTP status codes.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, selection.ErrUnknownNarrative):
		return http.StatusNotFound
	case errors.Is(err, selection.ErrNarrativeExcluded), errors.Is(err, selection.ErrNotActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
