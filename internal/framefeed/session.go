package framefeed

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linescope/linescope-go/internal/core/domain"
)

// Boundary separates frames on the wire. Clients are told about it via
// the multipart content type.
const Boundary = "frame"

// DefaultFrameInterval is the serving cadence when none is configured.
const DefaultFrameInterval = 200 * time.Millisecond

// State is a session's lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Flusher is the subset of http.Flusher the feed needs. Writers that
// do not implement it are flushed never, which still works for
// buffered tests.
type Flusher interface {
	Flush()
}

// Feed creates viewer sessions that share one frame counter. It is
// safe for concurrent use.
type Feed struct {
	counter  *Counter
	composer *Composer
	interval time.Duration
	logger   *slog.Logger

	active atomic.Int64
	served atomic.Int64
}

// NewFeed creates a Feed. interval <= 0 selects DefaultFrameInterval.
func NewFeed(counter *Counter, composer *Composer, interval time.Duration, logger *slog.Logger) *Feed {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{counter: counter, composer: composer, interval: interval, logger: logger}
}

// ContentType is the response content type announcing the boundary.
func (f *Feed) ContentType() string {
	return "multipart/x-mixed-replace; boundary=" + Boundary
}

// ActiveSessions returns how many sessions are currently streaming.
func (f *Feed) ActiveSessions() int64 {
	return f.active.Load()
}

// FramesServed returns the total frames written across all sessions.
func (f *Feed) FramesServed() int64 {
	return f.served.Load()
}

// NewSession creates an idle session with a fresh ID.
func (f *Feed) NewSession() *Session {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, _ := ulid.New(ulid.Timestamp(time.Now()), entropy)
	return &Session{
		id:   id.String(),
		feed: f,
	}
}

// Session is one viewer's stream. It moves Idle -> Streaming -> Closed
// and cannot be reused after closing.
type Session struct {
	id     string
	feed   *Feed
	state  atomic.Int32
	frames atomic.Int64
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Frames returns how many frames this session has written.
func (s *Session) Frames() int64 {
	return s.frames.Load()
}

// Serve streams frames to w until ctx is cancelled or the client goes
// away. Each tick draws the next global counter value; a frame that
// fails to compose is logged and skipped, and the session retries on
// the next tick. Serve can run at most once per session.
func (s *Session) Serve(ctx context.Context, w io.Writer) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateStreaming)) {
		return domain.ErrInvalidArgument.WithDetails(
			fmt.Sprintf("session %s is %s, not idle", s.id, s.State()))
	}
	s.feed.active.Add(1)
	defer func() {
		s.state.Store(int32(StateClosed))
		s.feed.active.Add(-1)
	}()

	flusher, _ := w.(Flusher)
	ticker := time.NewTicker(s.feed.interval)
	defer ticker.Stop()

	for {
		n, err := s.feed.counter.Next()
		if err != nil {
			// The sequence advanced in memory; serving continues.
			s.feed.logger.Warn("frame counter persist failed",
				"session", s.id, "error", err)
		}

		frame, err := s.feed.composer.Frame(n, time.Now())
		if err != nil {
			s.feed.logger.Warn("frame encode failed, retrying next tick",
				"session", s.id, "frame", n, "error", err)
		} else {
			if err := writePart(w, frame); err != nil {
				// Client disconnects surface as write errors.
				return nil
			}
			if flusher != nil {
				flusher.Flush()
			}
			s.frames.Add(1)
			s.feed.served.Add(1)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// writePart emits one multipart frame with its headers.
func writePart(w io.Writer, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
