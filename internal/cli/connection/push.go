package connection

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/linescope/linescope-go/internal/core/domain"
	"github.com/linescope/linescope-go/internal/server/intakeserver"
)

// DefaultCmdID identifies pushes from this tool in the server logs.
// Real devices carry a vendor-assigned 17-character id.
const DefaultCmdID = "LINESCOPE-CLI-001"

// PushClient sends readings over the binary intake protocol, the same
// way a field device does. Frame numbers increment per push.
type PushClient struct {
	addr    string
	cmdID   string
	timeout time.Duration
	frameNo atomic.Uint32
}

// NewPushClient creates a push client for the intake address.
func NewPushClient(addr string) *PushClient {
	return &PushClient{addr: addr, cmdID: DefaultCmdID, timeout: 10 * time.Second}
}

// Push sends one telemetry frame and waits for the acknowledgement.
// The reading is validated before anything goes on the wire: the
// binary timestamp cannot represent a zero time.
func (c *PushClient) Push(ctx context.Context, reading domain.Reading) error {
	if err := reading.Validate(); err != nil {
		return err
	}
	frame := intakeserver.BuildTelemetry(c.cmdID, c.nextFrameNo(), reading)
	ack, err := c.exchange(ctx, frame)
	if err != nil {
		return err
	}
	if ack.Type != intakeserver.TypeTelemetryAck {
		return fmt.Errorf("unexpected ack frame type %#02x", ack.Type)
	}
	if intakeserver.AckStatus(ack) != intakeserver.AckOK {
		return fmt.Errorf("server rejected the reading")
	}
	return nil
}

// Heartbeat sends a keepalive carrying the local clock and waits for
// the acknowledgement.
func (c *PushClient) Heartbeat(ctx context.Context) error {
	payload := binary.LittleEndian.AppendUint32(nil, uint32(time.Now().Unix()))
	ack, err := c.exchange(ctx, intakeserver.Frame{
		CmdID:     c.cmdID,
		FrameType: intakeserver.FrameUplink,
		Type:      intakeserver.TypeHeartbeat,
		FrameNo:   c.nextFrameNo(),
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	if ack.Type != intakeserver.TypeHeartbeatAck {
		return fmt.Errorf("unexpected ack frame type %#02x", ack.Type)
	}
	if intakeserver.AckStatus(ack) != intakeserver.AckOK {
		return fmt.Errorf("server rejected the heartbeat")
	}
	return nil
}

func (c *PushClient) nextFrameNo() byte {
	return byte(c.frameNo.Add(1))
}

// exchange dials, sends one frame and reads one ack.
func (c *PushClient) exchange(ctx context.Context, frame intakeserver.Frame) (intakeserver.Frame, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return intakeserver.Frame{}, fmt.Errorf("dial intake %s: %w", c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := intakeserver.WriteFrame(conn, frame); err != nil {
		return intakeserver.Frame{}, fmt.Errorf("send frame: %w", err)
	}
	ack, err := intakeserver.ReadFrame(bufio.NewReader(conn))
	if err != nil {
		return intakeserver.Frame{}, fmt.Errorf("read ack: %w", err)
	}
	return ack, nil
}
