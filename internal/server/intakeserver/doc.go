// Package intakeserver provides the TCP device intake for Linescope.
//
// Field devices push telemetry over the vendor's binary framing: sync
// bytes, a little-endian length, a 17-byte command id, frame and
// packet type bytes, a frame number, the payload, a CRC16-Modbus
// checksum and an end byte. The server validates each frame, hands
// decoded readings to the sensor service and answers every packet
// with a matching downlink ack.
//
// This package contains:
//
//   - protocol.go: frame codec, CRC, ack construction
//   - server.go: accept loop and per-connection handling
package intakeserver
