// Package buildinfo carries version metadata injected at build time.
package buildinfo
