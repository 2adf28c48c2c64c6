// Package httpserver provides the HTTP server for Linescope.
package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/linescope/linescope-go/internal/core/service"
	"github.com/linescope/linescope-go/internal/framefeed"
	"github.com/linescope/linescope-go/internal/server/httpserver/handler"
	"github.com/linescope/linescope-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// SensorService serves window reads and statistics.
	SensorService *service.SensorService

	// Feed serves the live MJPEG stream.
	Feed *framefeed.Feed

	// Metrics is the application metric registry; nil disables the
	// /metrics endpoint and request measurement.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger *slog.Logger

	// RateLimit is requests per second per client IP; 0 disables.
	RateLimit float64
	RateBurst int
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := handler.New(cfg.SensorService, cfg.Feed, logger)

	// API middleware order: Recover -> RequestID -> RateLimit -> Measure.
	api := func(route string) http.Handler {
		middlewares := []Middleware{
			Recover(logger),
			RequestID(),
		}
		if cfg.RateLimit > 0 {
			middlewares = append(middlewares, RateLimit(cfg.RateLimit, cfg.RateBurst))
		}
		if cfg.Metrics != nil {
			middlewares = append(middlewares, Measure(cfg.Metrics, route))
		}
		return Chain(h, middlewares...)
	}

	mux := http.NewServeMux()

	// Health endpoints bypass rate limiting so probes never starve.
	probe := Chain(h, Recover(logger), RequestID())
	mux.Handle("GET /health", probe)
	mux.Handle("GET /healthz", probe)
	mux.Handle("GET /ready", probe)

	// Sensor API
	mux.Handle("GET /api/sensors", api("/api/sensors"))
	mux.Handle("GET /api/sensor-data", api("/api/sensor-data"))
	mux.Handle("GET /api/sensors/latest", api("/api/sensors/latest"))
	mux.Handle("GET /api/sensors/stats", api("/api/sensors/stats"))

	// Live frame feed: long-lived, excluded from rate limiting so a
	// stream cannot exhaust its own client's bucket.
	stream := []Middleware{Recover(logger), RequestID()}
	if cfg.Metrics != nil {
		stream = append(stream, Measure(cfg.Metrics, "/stream.mjpg"))
	}
	mux.Handle("GET /stream.mjpg", Chain(h, stream...))

	// Metrics exposition
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), Recover(logger)))
	}

	return mux
}
