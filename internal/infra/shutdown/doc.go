// Package shutdown coordinates graceful process termination.
//
// A Handler collects cleanup hooks while the server wires itself up,
// then Wait blocks until SIGINT or SIGTERM and runs the hooks in
// reverse registration order under a single timeout.
package shutdown
