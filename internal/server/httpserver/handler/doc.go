// Package handler provides HTTP request handlers for Linescope.
//
// This package implements the HTTP API endpoints:
//
//   - sensor.go: window reads, latest reading, bounded tail, statistics
//   - stream.go: live MJPEG frame feed
//   - health.go: liveness and readiness probes
//   - types.go: response envelope
//
// All JSON endpoints use the standard envelope in types.go; the stream
// and metrics endpoints use their own wire formats.
package handler
