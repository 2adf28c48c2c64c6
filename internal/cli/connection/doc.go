// Package connection provides server communication for linescope-cli.
//
// Client speaks the HTTP API and decodes the standard response
// envelope. PushClient speaks the binary intake protocol for sending
// test readings straight to the device port.
package connection
