// Package command provides CLI command definitions for linescope-cli.
//
// It uses urfave/cli/v2 for command parsing. Commands talk to a
// running server over its HTTP API; push talks to the TCP intake port
// the way a field device would.
package command
