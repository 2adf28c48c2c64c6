package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linescope/linescope-go/internal/core/domain"
	"github.com/linescope/linescope-go/internal/core/service"
	"github.com/linescope/linescope-go/internal/framefeed"
)

// Handler is the main HTTP handler that routes requests to appropriate
// handlers.
type Handler struct {
	sensorSvc *service.SensorService
	feed      *framefeed.Feed
	logger    *slog.Logger
	mux       *http.ServeMux
}

// New creates a new Handler with the given services.
func New(sensorSvc *service.SensorService, feed *framefeed.Feed, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		sensorSvc: sensorSvc,
		feed:      feed,
		logger:    logger,
		mux:       http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoints
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	// Sensor endpoints
	h.mux.HandleFunc("GET /api/sensors", h.handleListReadings)
	h.mux.HandleFunc("GET /api/sensor-data", h.handleListReadings)
	h.mux.HandleFunc("GET /api/sensors/latest", h.handleLatestReading)
	h.mux.HandleFunc("GET /api/sensors/stats", h.handleStats)

	// Live frame feed
	h.mux.HandleFunc("GET /stream.mjpg", h.handleStream)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// getRequestID extracts request ID from the header set by middleware.
func getRequestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := errorCodeToHTTPStatus(code)
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "LS-SYS-5000", "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-1001"), strings.HasSuffix(code, "-1002"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-5030"), strings.HasSuffix(code, "-5040"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "LS-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
