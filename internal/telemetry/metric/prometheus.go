// Package metric provides Prometheus metrics for Linescope.
//
// It exposes metrics in Prometheus format for monitoring the sensor
// window, the snapshot cache, the maintenance scheduler, the frame
// feed and request rates. Metrics are exposed at /metrics.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Window metrics
	WindowReadings  prometheus.Gauge
	ReadingsWritten prometheus.Counter
	RowsDropped     prometheus.Counter

	// Cache metrics
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	CacheReloads prometheus.Counter
	CacheStale   prometheus.Counter

	// Scheduler metrics
	CollectorTicks    prometheus.Counter
	CollectorSkips    prometheus.Counter
	CollectorFailures prometheus.Counter

	// Frame feed metrics
	StreamSessions prometheus.Gauge
	FramesServed   prometheus.Counter

	// Intake metrics
	IntakePackets  prometheus.Counter
	IntakeRejected prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all application metrics
// registered, alongside the standard process and Go runtime
// collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		WindowReadings: factory.NewGauge(prometheus.GaugeOpts{
			Name: "linescope_window_readings",
			Help: "Readings currently held in the rolling window.",
		}),
		ReadingsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_readings_written_total",
			Help: "Readings accepted into the window since start.",
		}),
		RowsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_rows_dropped_total",
			Help: "Malformed rows dropped while decoding the window.",
		}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_cache_hits_total",
			Help: "Snapshot reads served without touching the source.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_cache_misses_total",
			Help: "Snapshot reads that required a source reload.",
		}),
		CacheReloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_cache_reloads_total",
			Help: "Source reloads performed.",
		}),
		CacheStale: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_cache_stale_served_total",
			Help: "Reads served from a stale snapshot after a reload failure.",
		}),

		CollectorTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_collector_ticks_total",
			Help: "Maintenance ticks dispatched.",
		}),
		CollectorSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_collector_skips_total",
			Help: "Ticks skipped because the previous pass was running.",
		}),
		CollectorFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_collector_failures_total",
			Help: "Maintenance job failures.",
		}),

		StreamSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "linescope_stream_sessions",
			Help: "Viewer sessions currently streaming.",
		}),
		FramesServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_frames_served_total",
			Help: "MJPEG frames written across all sessions.",
		}),

		IntakePackets: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_intake_packets_total",
			Help: "Telemetry packets accepted from device intake.",
		}),
		IntakeRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "linescope_intake_rejected_total",
			Help: "Intake packets rejected for framing or checksum faults.",
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linescope_http_requests_total",
			Help: "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linescope_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
