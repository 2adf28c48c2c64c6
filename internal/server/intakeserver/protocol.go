package intakeserver

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/linescope/linescope-go/internal/core/domain"
)

// Frame layout, both directions, after the device vendor's protocol:
//
//	0x5A 0xA5 | length (2, LE) | command id (17, NUL-padded ASCII) |
//	frame type (1) | packet type (1) | frame no (1) | payload (length) |
//	crc16 (2, LE) | 0x96
//
// The CRC is CRC16-Modbus over everything between the sync bytes and
// the CRC itself. Telemetry payloads carry a uint32 unix timestamp
// followed by five little-endian float32 channels; a NaN channel means
// the device has no value for it.
const (
	syncHi  = 0x5A
	syncLo  = 0xA5
	endByte = 0x96

	// FrameUplink marks device-to-server frames, FrameDownlink acks.
	FrameUplink   = 0x01
	FrameDownlink = 0x02

	// TypeTelemetry is a device reading push.
	TypeTelemetry = 0x31
	// TypeHeartbeat is a device keepalive.
	TypeHeartbeat = 0x61
	// TypeTelemetryAck acknowledges a telemetry frame; the first
	// payload byte is the status.
	TypeTelemetryAck = 0xB1
	// TypeHeartbeatAck acknowledges a heartbeat and carries the server
	// clock so devices can resync.
	TypeHeartbeatAck = 0xE1

	// Ack status bytes.
	AckOK       = 0xFF
	AckRejected = 0x00

	cmdIDLen  = 17
	headerLen = 2 + 2 + cmdIDLen + 3

	// frameOverhead is every fixed byte around the payload.
	frameOverhead = headerLen + 3
	maxFrameLen   = 4096

	// telemetryPayloadLen is 4 timestamp bytes plus five float32s.
	telemetryPayloadLen = 4 + 5*4
)

// Framing errors. None of them ends the connection: a checksum
// mismatch is answered with a rejected ack when the header survived,
// and anything less coherent is dropped while the reader rescans for
// the next sync pair.
var (
	ErrBadChecksum = domain.NewDomainError("LS-INTAKE-4002", "frame checksum mismatch")
	ErrBadFrame    = domain.NewDomainError("LS-INTAKE-4003", "malformed frame")
)

// crc16 computes CRC16-Modbus (poly 0xA001, init 0xFFFF).
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// Frame is one intake frame. CmdID identifies the sending device.
type Frame struct {
	CmdID     string
	FrameType byte
	Type      byte
	FrameNo   byte
	Payload   []byte
}

// ReadFrame reads and verifies one frame from br, scanning past any
// leading garbage to the next sync pair. When the header decoded but
// the frame failed verification, the returned Frame still carries the
// header fields so the caller can address a rejected ack.
func ReadFrame(br *bufio.Reader) (Frame, error) {
	if err := seekSync(br); err != nil {
		return Frame{}, err
	}

	var lenb [2]byte
	if _, err := io.ReadFull(br, lenb[:]); err != nil {
		return Frame{}, err
	}
	plen := int(binary.LittleEndian.Uint16(lenb[:]))
	if plen == 0 || frameOverhead+plen > maxFrameLen {
		return Frame{}, ErrBadFrame.WithDetails("implausible payload length")
	}

	rest := make([]byte, cmdIDLen+3+plen+3)
	if _, err := io.ReadFull(br, rest); err != nil {
		return Frame{}, err
	}

	f := Frame{
		CmdID:     trimCmdID(rest[:cmdIDLen]),
		FrameType: rest[cmdIDLen],
		Type:      rest[cmdIDLen+1],
		FrameNo:   rest[cmdIDLen+2],
	}
	if rest[len(rest)-1] != endByte {
		return f, ErrBadFrame.WithDetails("missing end byte")
	}

	want := binary.LittleEndian.Uint16(rest[len(rest)-3 : len(rest)-1])
	body := make([]byte, 0, 2+len(rest)-3)
	body = append(body, lenb[:]...)
	body = append(body, rest[:len(rest)-3]...)
	if crc16(body) != want {
		return f, ErrBadChecksum
	}

	f.Payload = rest[cmdIDLen+3 : cmdIDLen+3+plen]
	return f, nil
}

// seekSync discards bytes until the 0x5A 0xA5 pair. Devices on flaky
// links resume mid-frame; scanning forward re-locks on the next frame.
func seekSync(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return err
		}
		if b != syncHi {
			continue
		}
		nxt, err := br.Peek(1)
		if err != nil {
			return err
		}
		if nxt[0] == syncLo {
			br.ReadByte()
			return nil
		}
	}
}

// WriteFrame encodes f and writes it to w in one call.
func WriteFrame(w io.Writer, f Frame) error {
	if frameOverhead+len(f.Payload) > maxFrameLen {
		return ErrBadFrame.WithDetails("payload too long")
	}
	buf := make([]byte, 0, frameOverhead+len(f.Payload))
	buf = append(buf, syncHi, syncLo)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(f.Payload)))
	buf = append(buf, padCmdID(f.CmdID)...)
	buf = append(buf, f.FrameType, f.Type, f.FrameNo)
	buf = append(buf, f.Payload...)
	buf = binary.LittleEndian.AppendUint16(buf, crc16(buf[2:]))
	buf = append(buf, endByte)
	_, err := w.Write(buf)
	return err
}

// Ack builds the downlink acknowledgement for an uplink frame,
// echoing its command id and frame number. Unknown packet types are
// acked under their own type, as the original devices expect.
func Ack(f Frame, ok bool) Frame {
	status := byte(AckRejected)
	if ok {
		status = AckOK
	}
	ack := Frame{
		CmdID:     f.CmdID,
		FrameType: FrameDownlink,
		FrameNo:   f.FrameNo,
	}
	switch f.Type {
	case TypeHeartbeat:
		ack.Type = TypeHeartbeatAck
		payload := []byte{status, 0x00}
		payload = binary.LittleEndian.AppendUint32(payload, uint32(time.Now().Unix()))
		ack.Payload = payload
	case TypeTelemetry:
		ack.Type = TypeTelemetryAck
		ack.Payload = []byte{status}
	default:
		ack.Type = f.Type
		ack.Payload = []byte{status}
	}
	return ack
}

// AckStatus extracts the status byte of an ack frame.
func AckStatus(f Frame) byte {
	if len(f.Payload) == 0 {
		return AckRejected
	}
	return f.Payload[0]
}

// BuildTelemetry frames r as an uplink telemetry packet. Nil channels
// encode as NaN.
func BuildTelemetry(cmdID string, frameNo byte, r domain.Reading) Frame {
	payload := make([]byte, 0, telemetryPayloadLen)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(r.Timestamp.Unix()))
	for _, ch := range []*float64{r.SwaySpeed, r.Temperature, r.Humidity, r.Pressure, r.Lux} {
		v := math.NaN()
		if ch != nil {
			v = *ch
		}
		payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(float32(v)))
	}
	return Frame{
		CmdID:     cmdID,
		FrameType: FrameUplink,
		Type:      TypeTelemetry,
		FrameNo:   frameNo,
		Payload:   payload,
	}
}

// DecodeTelemetry parses a telemetry payload. The timestamp lands in
// the site timezone at minute resolution; NaN channels come back nil.
func DecodeTelemetry(payload []byte) (domain.Reading, error) {
	if len(payload) != telemetryPayloadLen {
		return domain.Reading{}, ErrBadFrame.WithDetails("telemetry payload length")
	}
	sec := binary.LittleEndian.Uint32(payload[:4])
	r := domain.Reading{
		Timestamp: time.Unix(int64(sec), 0).In(domain.SiteZone()).Truncate(time.Minute),
	}
	for i, dst := range []**float64{&r.SwaySpeed, &r.Temperature, &r.Humidity, &r.Pressure, &r.Lux} {
		bits := binary.LittleEndian.Uint32(payload[4+i*4 : 8+i*4])
		v := float64(math.Float32frombits(bits))
		if !math.IsNaN(v) {
			*dst = domain.Float(v)
		}
	}
	return r, nil
}

func padCmdID(id string) []byte {
	buf := make([]byte, cmdIDLen)
	copy(buf, id)
	return buf
}

func trimCmdID(raw []byte) string {
	return string(bytes.TrimRight(raw, "\x00"))
}
