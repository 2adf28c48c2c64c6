// Package service provides the domain services of Linescope.
//
// Domain services contain the business logic and orchestrate operations
// on domain models. They define interfaces for their storage
// dependencies, allowing for dependency injection and testability.
//
// This package contains:
//
//   - SensorService: window reads, intake, aggregate statistics
//   - Collector: scheduled sample collection with catch-up inserts
//   - Generator: synthetic diurnal sensor readings
//
// Services are stateless apart from injected dependencies and safe for
// concurrent use.
package service
