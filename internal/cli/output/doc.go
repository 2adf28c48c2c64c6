// Package output provides output formatting for linescope-cli.
//
// Command results render as an ASCII table by default or as indented
// JSON with --output json. Tables are derived from struct json tags so
// columns match the API wire names.
package output
