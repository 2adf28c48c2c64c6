// Package cache provides a read-through snapshot cache over the window
// store. Every read probes the source's change marker; a changed marker
// triggers a reload that is collapsed across concurrent callers, and a
// failed or slow reload falls back to the last good snapshot.
package cache
