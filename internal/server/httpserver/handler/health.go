package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /health and GET /healthz.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. The server is ready once it can
// serve a window snapshot, stale or fresh; an empty window is still
// ready.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sensorSvc.ReadAll(r.Context()); err != nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "LS-SRC-5030", "window not readable", nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
