package mqttintake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/linescope/linescope-go/internal/core/domain"
	"github.com/linescope/linescope-go/internal/core/service"
	"github.com/linescope/linescope-go/internal/telemetry/metric"
)

// Config holds subscriber settings.
type Config struct {
	// Broker is the broker address, either host:port or tcp://host:port.
	Broker string
	// Topic is the topic filter to subscribe to.
	Topic string
	// ClientID identifies this subscriber to the broker.
	ClientID string
	// QoS for the subscription. 0 and 1 are supported.
	QoS byte
	// ConnectTimeout bounds the dial and CONNECT handshake.
	ConnectTimeout time.Duration
}

// DefaultConfig returns subscriber settings for a local broker.
func DefaultConfig() Config {
	return Config{
		Broker:         "tcp://127.0.0.1:1883",
		Topic:          "linescope/readings",
		ClientID:       "linescope-intake",
		QoS:            1,
		ConnectTimeout: 10 * time.Second,
	}
}

// Subscriber consumes published readings from an MQTT topic.
type Subscriber struct {
	cfg     Config
	svc     *service.SensorService
	metrics *metric.Registry
	logger  *slog.Logger

	client  *paho.Client
	conn    net.Conn
	running atomic.Bool
}

// New creates a subscriber. metrics may be nil.
func New(cfg Config, svc *service.SensorService, metrics *metric.Registry, logger *slog.Logger) *Subscriber {
	def := DefaultConfig()
	if cfg.Broker == "" {
		cfg.Broker = def.Broker
	}
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = def.ClientID
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		cfg:     cfg,
		svc:     svc,
		metrics: metrics,
		logger:  logger.With("component", "mqtt-intake"),
	}
}

// Start dials the broker, connects and subscribes. Messages are
// handled on paho's receive goroutine until Shutdown.
func (s *Subscriber) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("mqtt subscriber already running")
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", brokerAddr(s.cfg.Broker))
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("dial broker %s: %w", s.cfg.Broker, err)
	}
	s.conn = conn

	s.client = paho.NewClient(paho.ClientConfig{
		ClientID: s.cfg.ClientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				s.handlePublish(pr.Packet.Topic, pr.Packet.Payload)
				return true, nil
			},
		},
		OnClientError: func(err error) {
			if s.running.Load() {
				s.logger.Error("mqtt client error", "error", err)
			}
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			s.logger.Warn("broker disconnected us", "reason_code", d.ReasonCode)
		},
	})

	if _, err := s.client.Connect(dialCtx, &paho.Connect{
		ClientID:   s.cfg.ClientID,
		CleanStart: true,
		KeepAlive:  30,
	}); err != nil {
		conn.Close()
		s.running.Store(false)
		return fmt.Errorf("mqtt connect: %w", err)
	}

	if _, err := s.client.Subscribe(dialCtx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{
			Topic: s.cfg.Topic,
			QoS:   s.cfg.QoS,
		}},
	}); err != nil {
		s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		s.running.Store(false)
		return fmt.Errorf("mqtt subscribe %s: %w", s.cfg.Topic, err)
	}

	s.logger.Info("mqtt intake subscribed",
		"broker", s.cfg.Broker, "topic", s.cfg.Topic, "qos", s.cfg.QoS)
	return nil
}

// Shutdown disconnects from the broker.
func (s *Subscriber) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.client != nil {
		if err := s.client.Disconnect(&paho.Disconnect{ReasonCode: 0}); err != nil {
			// The broker may already have dropped the connection.
			s.logger.Debug("mqtt disconnect", "error", err)
		}
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.logger.Info("mqtt intake stopped")
	return nil
}

// handlePublish decodes one published message and ingests its
// readings. A payload is either a single reading object or an array
// of them, in the API wire shape.
func (s *Subscriber) handlePublish(topic string, payload []byte) {
	s.countPacket()
	batch, err := decodePayload(payload)
	if err != nil {
		s.countRejected()
		s.logger.Warn("mqtt payload rejected", "topic", topic, "error", err)
		return
	}
	if len(batch) == 0 {
		return
	}
	n, err := s.svc.Ingest(context.Background(), batch)
	if err != nil {
		s.countRejected()
		s.logger.Warn("mqtt ingest failed", "topic", topic, "error", err)
		return
	}
	if n < len(batch) {
		s.countRejected()
	}
	if n > 0 && s.metrics != nil {
		s.metrics.ReadingsWritten.Add(float64(n))
	}
	s.logger.Debug("mqtt readings ingested", "topic", topic, "count", n)
}

func decodePayload(payload []byte) ([]domain.Reading, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, domain.ErrSchemaViolation.WithDetails("empty payload")
	}
	if trimmed[0] == '[' {
		var batch []domain.Reading
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, err
		}
		return batch, nil
	}
	var r domain.Reading
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, err
	}
	return []domain.Reading{r}, nil
}

// brokerAddr strips an optional tcp:// scheme from a broker address.
func brokerAddr(broker string) string {
	if i := strings.Index(broker, "://"); i >= 0 {
		return broker[i+3:]
	}
	return broker
}

func (s *Subscriber) countPacket() {
	if s.metrics != nil {
		s.metrics.IntakePackets.Inc()
	}
}

func (s *Subscriber) countRejected() {
	if s.metrics != nil {
		s.metrics.IntakeRejected.Inc()
	}
}
