// Package httpserver provides the HTTP server for Linescope.
//
// It uses the Go standard library net/http for implementation,
// providing the sensor read API, aggregate statistics, the live MJPEG
// stream, health probes and Prometheus metrics.
//
// This package contains:
//
//   - server.go: HTTP server lifecycle
//   - router.go: Route and middleware assembly
//   - middleware.go: Request ID, recovery, rate limiting, metrics
//   - handler/: Request handlers and response envelope
package httpserver
