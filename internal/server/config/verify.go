// Package config defines the server configuration structure.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyCollector(&cfg.Collector); err != nil {
		return err
	}
	return verifyStream(&cfg.Stream)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if cfg.HTTP.RateLimit < 0 {
		return errors.New("server.http.rate_limit must not be negative")
	}
	if cfg.Intake.Enabled && cfg.Intake.Addr == "" {
		return errors.New("server.intake.addr is required when intake is enabled")
	}
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return errors.New("server.mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.Topic == "" {
			return errors.New("server.mqtt.topic is required when mqtt is enabled")
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataFile == "" {
		return errors.New("storage.data_file is required")
	}
	if cfg.CounterFile == "" {
		return errors.New("storage.counter_file is required")
	}
	if cfg.WindowCap < 1 {
		return errors.New("storage.window_cap must be at least 1")
	}

	// Both files live under directories that must be writable.
	for _, path := range []string{cfg.DataFile, cfg.CounterFile} {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("cannot create directory for %s: %w", path, err)
		}
	}
	return nil
}

func verifyCollector(cfg *CollectorSection) error {
	if cfg.Interval <= 0 {
		return errors.New("collector.interval must be positive")
	}
	if cfg.StopTimeout <= 0 {
		return errors.New("collector.stop_timeout must be positive")
	}
	return nil
}

func verifyStream(cfg *StreamSection) error {
	if cfg.FrameInterval <= 0 {
		return errors.New("stream.frame_interval must be positive")
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return errors.New("stream.jpeg_quality must be between 1 and 100")
	}
	return nil
}
