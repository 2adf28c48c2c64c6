// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr   = "127.0.0.1:8080"
	DefaultIntakeAddr = "127.0.0.1:9123"
	DefaultMQTTBroker = "tcp://127.0.0.1:1883"
	DefaultMQTTTopic  = "linescope/readings"

	DefaultDataFile    = "/var/lib/linescope/sensor_data.txt"
	DefaultCounterFile = "/var/lib/linescope/count.txt"
	DefaultWindowCap   = 48

	DefaultCollectInterval = 30 * time.Minute
	DefaultStopTimeout     = 10 * time.Second

	DefaultFrameInterval = 200 * time.Millisecond
	DefaultJPEGQuality   = 80

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:      DefaultHTTPAddr,
				RateLimit: 50,
				RateBurst: 100,
			},
			Intake: IntakeConfig{
				Enabled:     false,
				Addr:        DefaultIntakeAddr,
				MaxConns:    64,
				ReadTimeout: 30 * time.Second,
			},
			MQTT: MQTTConfig{
				Enabled:  false,
				Broker:   DefaultMQTTBroker,
				Topic:    DefaultMQTTTopic,
				ClientID: "linescope-server",
			},
		},
		Storage: StorageSection{
			DataFile:      DefaultDataFile,
			CounterFile:   DefaultCounterFile,
			WindowCap:     DefaultWindowCap,
			ReloadTimeout: 2 * time.Second,
		},
		Collector: CollectorSection{
			Interval:    DefaultCollectInterval,
			StopTimeout: DefaultStopTimeout,
		},
		Stream: StreamSection{
			FrameInterval: DefaultFrameInterval,
			JPEGQuality:   DefaultJPEGQuality,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
