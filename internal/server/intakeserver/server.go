package intakeserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/linescope/linescope-go/internal/core/domain"
	"github.com/linescope/linescope-go/internal/core/service"
	"github.com/linescope/linescope-go/internal/telemetry/metric"
)

// Config holds intake listener settings.
type Config struct {
	Addr        string
	MaxConns    int
	ReadTimeout time.Duration

	// FrameRate caps frames per second per connection; FrameBurst is
	// the burst allowance. Excess frames are rejected, not queued.
	FrameRate  float64
	FrameBurst int
}

// DefaultConfig returns intake settings suitable for local development.
func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:9123",
		MaxConns:    64,
		ReadTimeout: 90 * time.Second,
		FrameRate:   10,
		FrameBurst:  20,
	}
}

// Server accepts device connections and feeds decoded telemetry into
// the sensor service.
type Server struct {
	cfg     Config
	svc     *service.SensorService
	metrics *metric.Registry
	logger  *slog.Logger

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup
	sem     chan struct{}

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// New creates an intake server. metrics may be nil.
func New(cfg Config, svc *service.SensorService, metrics *metric.Registry, logger *slog.Logger) *Server {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultConfig().MaxConns
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultConfig().ReadTimeout
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultConfig().FrameRate
	}
	if cfg.FrameBurst <= 0 {
		cfg.FrameBurst = DefaultConfig().FrameBurst
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		svc:     svc,
		metrics: metrics,
		logger:  logger.With("component", "intake"),
		sem:     make(chan struct{}, cfg.MaxConns),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and launches the accept loop. It returns
// once the listener is bound; Shutdown stops it.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("intake server already running")
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("bind intake listener on %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.logger.Info("intake server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown closes the listener and waits for in-flight connections,
// bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.ln != nil {
		s.ln.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("intake server stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("intake shutdown: %w", ctx.Err())
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.running.Load() {
				return
			}
			s.logger.Warn("intake accept failed", "error", err)
			continue
		}
		select {
		case s.sem <- struct{}{}:
		default:
			s.logger.Warn("intake connection limit reached, dropping",
				"remote", conn.RemoteAddr().String())
			conn.Close()
			continue
		}
		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer func() {
				s.connMu.Lock()
				delete(s.conns, conn)
				s.connMu.Unlock()
			}()
			s.serveConn(conn)
		}()
	}
}

// serveConn reads frames until the peer goes away, the stream breaks
// or the server stops. Framing faults answer with a rejected ack when
// the header survived and are otherwise dropped; either way the
// connection stays up and the reader rescans for the next sync pair.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	br := bufio.NewReader(conn)
	limiter := rate.NewLimiter(rate.Limit(s.cfg.FrameRate), s.cfg.FrameBurst)

	for s.running.Load() {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		frame, err := ReadFrame(br)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				return
			case isTimeout(err):
				s.logger.Debug("intake connection idle, closing", "remote", remote)
				return
			case errors.Is(err, net.ErrClosed):
				return
			case errors.Is(err, ErrBadChecksum), errors.Is(err, ErrBadFrame):
				s.countRejected()
				s.logger.Warn("intake framing fault",
					"remote", remote, "cmd_id", frame.CmdID, "error", err)
				if frame.Type != 0 {
					if werr := WriteFrame(conn, Ack(frame, false)); werr != nil {
						return
					}
				}
				continue
			default:
				s.logger.Warn("intake read failed", "remote", remote, "error", err)
				return
			}
		}
		if !limiter.Allow() {
			s.countRejected()
			s.logger.Warn("intake frame rate exceeded", "remote", remote, "cmd_id", frame.CmdID)
			if werr := WriteFrame(conn, Ack(frame, false)); werr != nil {
				return
			}
			continue
		}
		if err := s.handleFrame(conn, frame); err != nil {
			s.logger.Warn("intake write failed, closing", "remote", remote, "error", err)
			return
		}
	}
}

func (s *Server) handleFrame(conn net.Conn, frame Frame) error {
	switch frame.Type {
	case TypeHeartbeat:
		s.countPacket()
		return WriteFrame(conn, Ack(frame, true))

	case TypeTelemetry:
		s.countPacket()
		ok := true
		reading, err := DecodeTelemetry(frame.Payload)
		if err == nil {
			var n int
			n, err = s.svc.Ingest(context.Background(), []domain.Reading{reading})
			if err == nil && n > 0 && s.metrics != nil {
				s.metrics.ReadingsWritten.Add(float64(n))
			}
		}
		if err != nil {
			ok = false
			s.countRejected()
			s.logger.Warn("telemetry packet rejected",
				"remote", conn.RemoteAddr().String(), "cmd_id", frame.CmdID, "error", err)
		}
		return WriteFrame(conn, Ack(frame, ok))

	default:
		s.countRejected()
		return WriteFrame(conn, Ack(frame, false))
	}
}

func (s *Server) countPacket() {
	if s.metrics != nil {
		s.metrics.IntakePackets.Inc()
	}
}

func (s *Server) countRejected() {
	if s.metrics != nil {
		s.metrics.IntakeRejected.Inc()
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
