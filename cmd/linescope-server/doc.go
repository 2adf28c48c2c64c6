// Package main provides the entry point for linescope-server.
//
// The server is the core Linescope service that provides:
//
//   - HTTP API for the rolling telemetry window and channel statistics
//   - MJPEG frame feed for live line inspection
//   - TCP device intake for field telemetry pushes
//   - Optional MQTT intake for sites with a broker
//
// Usage:
//
//	linescope-server [flags]
//	linescope-server --config /path/to/config.yaml
//
// The server loads configuration, initializes the window store and
// maintenance scheduler, and starts all configured listeners.
package main
