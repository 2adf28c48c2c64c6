package handler

import (
	"net/http"
)

// handleStream handles GET /stream.mjpg. The response never ends on
// its own; it streams frames until the client disconnects.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	session := h.feed.NewSession()

	w.Header().Set("Content-Type", h.feed.ContentType())
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")

	h.logger.Info("stream session opened",
		"session", session.ID(),
		"remote", r.RemoteAddr)

	if err := session.Serve(r.Context(), w); err != nil {
		h.logger.Warn("stream session error",
			"session", session.ID(),
			"error", err)
		return
	}

	h.logger.Info("stream session closed",
		"session", session.ID(),
		"frames", session.Frames())
}
