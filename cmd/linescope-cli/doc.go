// Package main provides the entry point for linescope-cli.
//
// The CLI tool provides command-line access to a Linescope server for:
//
//   - Health and readiness checks
//   - Querying the rolling telemetry window and channel statistics
//   - Pushing test readings through the device intake port
//
// Usage:
//
//	linescope-cli [command] [flags]
//	linescope-cli readings list --limit 5
//	linescope-cli -s scope.example.com:8080 status
package main
