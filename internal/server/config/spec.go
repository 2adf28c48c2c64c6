// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for linescope-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Storage   StorageSection   `koanf:"storage"`
	Collector CollectorSection `koanf:"collector"`
	Stream    StreamSection    `koanf:"stream"`
	Log       LogSection       `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP   HTTPConfig   `koanf:"http"`
	Intake IntakeConfig `koanf:"intake"`
	MQTT   MQTTConfig   `koanf:"mqtt"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr string `koanf:"addr"`

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// IntakeConfig configures the TCP device intake server.
type IntakeConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`

	// MaxConns caps concurrent device connections.
	MaxConns int `koanf:"max_conns"`

	// ReadTimeout bounds a single frame read.
	ReadTimeout time.Duration `koanf:"read_timeout"`
}

// MQTTConfig configures the MQTT intake subscriber.
type MQTTConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Broker   string `koanf:"broker"`
	Topic    string `koanf:"topic"`
	ClientID string `koanf:"client_id"`
}

// StorageSection configures the window store and frame feed files.
type StorageSection struct {
	// DataFile is the rolling window backing file.
	DataFile string `koanf:"data_file"`

	// CounterFile persists the frame counter.
	CounterFile string `koanf:"counter_file"`

	// BaseImage is the frame feed base picture; optional.
	BaseImage string `koanf:"base_image"`

	// WindowCap bounds how many readings the window holds.
	WindowCap int `koanf:"window_cap"`

	// ReloadTimeout bounds a cache reload before stale fallback.
	ReloadTimeout time.Duration `koanf:"reload_timeout"`
}

// CollectorSection configures the maintenance scheduler.
type CollectorSection struct {
	// Interval is the sampling cadence and the scheduler tick.
	Interval time.Duration `koanf:"interval"`

	// Seed makes the sample generator reproducible; 0 derives one
	// from the clock.
	Seed uint64 `koanf:"seed"`

	// StopTimeout bounds the wait for an in-flight pass at shutdown.
	StopTimeout time.Duration `koanf:"stop_timeout"`
}

// StreamSection configures the live frame feed.
type StreamSection struct {
	// FrameInterval is the serving cadence per session.
	FrameInterval time.Duration `koanf:"frame_interval"`

	// JPEGQuality is the encoder quality, 1 to 100.
	JPEGQuality int `koanf:"jpeg_quality"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
