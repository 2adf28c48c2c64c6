package intakeserver

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/linescope/linescope-go/internal/core/domain"
)

func frameBytes(t *testing.T, f Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteFrame(&buf, f); err != nil {
		t.Fatalf("WriteFrame() = %v", err)
	}
	return buf.Bytes()
}

func TestCRC16_KnownVector(t *testing.T) {
	// Standard CRC16-Modbus check value.
	if got := crc16([]byte("123456789")); got != 0x4B37 {
		t.Fatalf("crc16 = %#04x, want 0x4B37", got)
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	sent := Frame{
		CmdID:     "TOWER-047-SENSOR1",
		FrameType: FrameUplink,
		Type:      TypeTelemetry,
		FrameNo:   42,
		Payload:   []byte{1, 2, 3, 4},
	}

	got, err := ReadFrame(bufio.NewReader(bytes.NewReader(frameBytes(t, sent))))
	if err != nil {
		t.Fatalf("ReadFrame() = %v", err)
	}
	if got.CmdID != sent.CmdID {
		t.Errorf("CmdID = %q, want %q", got.CmdID, sent.CmdID)
	}
	if got.FrameType != sent.FrameType || got.Type != sent.Type || got.FrameNo != sent.FrameNo {
		t.Errorf("header = %#02x/%#02x/%d, want %#02x/%#02x/%d",
			got.FrameType, got.Type, got.FrameNo, sent.FrameType, sent.Type, sent.FrameNo)
	}
	if !bytes.Equal(got.Payload, sent.Payload) {
		t.Errorf("payload = %v, want %v", got.Payload, sent.Payload)
	}
}

func TestFrame_ShortCmdIDPadsWithNUL(t *testing.T) {
	sent := Frame{CmdID: "DEV1", FrameType: FrameUplink, Type: TypeHeartbeat, Payload: []byte{0}}

	got, err := ReadFrame(bufio.NewReader(bytes.NewReader(frameBytes(t, sent))))
	if err != nil {
		t.Fatalf("ReadFrame() = %v", err)
	}
	if got.CmdID != "DEV1" {
		t.Errorf("CmdID = %q, want %q", got.CmdID, "DEV1")
	}
}

func TestReadFrame_SkipsLeadingGarbage(t *testing.T) {
	raw := frameBytes(t, Frame{CmdID: "DEV1", FrameType: FrameUplink, Type: TypeHeartbeat, Payload: []byte{7}})
	stream := append([]byte{0x00, 0x5A, 0x17, 0xFF}, raw...)

	got, err := ReadFrame(bufio.NewReader(bytes.NewReader(stream)))
	if err != nil {
		t.Fatalf("ReadFrame() = %v", err)
	}
	if got.Type != TypeHeartbeat {
		t.Errorf("Type = %#02x, want heartbeat", got.Type)
	}
}

func TestReadFrame_CorruptChecksumKeepsHeader(t *testing.T) {
	raw := frameBytes(t, Frame{CmdID: "DEV1", FrameType: FrameUplink, Type: TypeTelemetry, FrameNo: 9, Payload: []byte{1, 2, 3}})
	raw[headerLen+1] ^= 0xFF

	got, err := ReadFrame(bufio.NewReader(bytes.NewReader(raw)))
	if !errors.Is(err, ErrBadChecksum) {
		t.Fatalf("ReadFrame() error = %v, want ErrBadChecksum", err)
	}
	if got.CmdID != "DEV1" || got.Type != TypeTelemetry || got.FrameNo != 9 {
		t.Errorf("header not preserved: %+v", got)
	}
	if got.Payload != nil {
		t.Errorf("payload should stay nil on checksum failure")
	}
}

func TestReadFrame_MissingEndByteKeepsHeader(t *testing.T) {
	raw := frameBytes(t, Frame{CmdID: "DEV1", FrameType: FrameUplink, Type: TypeHeartbeat, Payload: []byte{1}})
	raw[len(raw)-1] = 0x00

	got, err := ReadFrame(bufio.NewReader(bytes.NewReader(raw)))
	if !errors.Is(err, ErrBadFrame) {
		t.Fatalf("ReadFrame() error = %v, want ErrBadFrame", err)
	}
	if got.Type != TypeHeartbeat {
		t.Errorf("header not preserved: %+v", got)
	}
}

func TestReadFrame_ImplausibleLength(t *testing.T) {
	raw := []byte{syncHi, syncLo, 0xFF, 0xFF}

	_, err := ReadFrame(bufio.NewReader(bytes.NewReader(raw)))
	if !errors.Is(err, ErrBadFrame) {
		t.Fatalf("ReadFrame() error = %v, want ErrBadFrame", err)
	}
}

func TestAck_Telemetry(t *testing.T) {
	up := Frame{CmdID: "DEV1", FrameType: FrameUplink, Type: TypeTelemetry, FrameNo: 7}

	ack := Ack(up, true)
	if ack.Type != TypeTelemetryAck || ack.FrameType != FrameDownlink {
		t.Errorf("ack type = %#02x/%#02x, want downlink telemetry ack", ack.FrameType, ack.Type)
	}
	if ack.CmdID != "DEV1" || ack.FrameNo != 7 {
		t.Errorf("ack does not echo the uplink header: %+v", ack)
	}
	if AckStatus(ack) != AckOK {
		t.Errorf("status = %#02x, want AckOK", AckStatus(ack))
	}

	if nak := Ack(up, false); AckStatus(nak) != AckRejected {
		t.Errorf("status = %#02x, want AckRejected", AckStatus(nak))
	}
}

func TestAck_HeartbeatCarriesClock(t *testing.T) {
	before := time.Now().Unix()
	ack := Ack(Frame{CmdID: "DEV1", Type: TypeHeartbeat, FrameNo: 3}, true)
	after := time.Now().Unix()

	if ack.Type != TypeHeartbeatAck {
		t.Fatalf("ack type = %#02x, want heartbeat ack", ack.Type)
	}
	if len(ack.Payload) != 6 {
		t.Fatalf("payload length = %d, want 6", len(ack.Payload))
	}
	if AckStatus(ack) != AckOK {
		t.Errorf("status = %#02x, want AckOK", AckStatus(ack))
	}
	clock := int64(binary.LittleEndian.Uint32(ack.Payload[2:6]))
	if clock < before || clock > after {
		t.Errorf("clock = %d, want within [%d, %d]", clock, before, after)
	}
}

func TestTelemetry_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 0, 0, domain.SiteZone())
	sent := domain.Reading{
		Timestamp:   ts,
		Temperature: domain.Float(23.25),
		Pressure:    domain.Float(1012.5),
	}

	frame := BuildTelemetry("DEV1", 1, sent)
	got, err := DecodeTelemetry(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeTelemetry() = %v", err)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
	if got.Temperature == nil || *got.Temperature != 23.25 {
		t.Errorf("Temperature = %v, want 23.25", got.Temperature)
	}
	if got.Pressure == nil || *got.Pressure != 1012.5 {
		t.Errorf("Pressure = %v, want 1012.5", got.Pressure)
	}
	if got.SwaySpeed != nil || got.Humidity != nil || got.Lux != nil {
		t.Errorf("absent channels decoded non-nil: %+v", got)
	}
}

func TestTelemetry_TimestampTruncatesToMinute(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 37, 0, domain.SiteZone())

	frame := BuildTelemetry("DEV1", 1, domain.Reading{Timestamp: ts, Lux: domain.Float(800)})
	got, err := DecodeTelemetry(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeTelemetry() = %v", err)
	}
	want := time.Date(2026, 3, 14, 9, 26, 0, 0, domain.SiteZone())
	if !got.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want)
	}
}

func TestDecodeTelemetry_ShortPayload(t *testing.T) {
	if _, err := DecodeTelemetry([]byte{1, 2, 3}); !errors.Is(err, ErrBadFrame) {
		t.Fatalf("DecodeTelemetry() error = %v, want ErrBadFrame", err)
	}
}
