package handler

import (
	"net/http"
	"strconv"

	"github.com/linescope/linescope-go/internal/core/domain"
)

// handleListReadings handles GET /api/sensors and GET /api/sensor-data.
//
// Without a limit parameter the full window is returned in ascending
// timestamp order. With ?limit=N only the newest N readings are
// returned, still ascending; a limit larger than the window is clamped.
func (h *Handler) handleListReadings(w http.ResponseWriter, r *http.Request) {
	var (
		readings []domain.Reading
		err      error
	)

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			h.writeError(w, r, http.StatusBadRequest, domain.ErrInvalidArgument.Code,
				"limit must be an integer", map[string]string{"limit": raw})
			return
		}
		readings, err = h.sensorSvc.ReadN(r.Context(), limit)
	} else {
		readings, err = h.sensorSvc.ReadAll(r.Context())
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"count":    len(readings),
		"readings": readings,
	})
}

// handleLatestReading handles GET /api/sensors/latest.
func (h *Handler) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	reading, err := h.sensorSvc.ReadLatest(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, reading)
}

// handleStats handles GET /api/sensors/stats.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sensorSvc.Stats(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, stats)
}
