// Package benchmark provides performance benchmarks across the
// Linescope storage and frame pipeline.
//
// Run with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/
package benchmark
