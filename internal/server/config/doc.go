// Package config defines the server configuration tree.
//
// ServerConfig in spec.go carries every tunable, Default fills the
// values a bare deployment runs with, and Verify rejects combinations
// the server cannot operate under. Loading and layering live in
// internal/infra/confloader.
package config
