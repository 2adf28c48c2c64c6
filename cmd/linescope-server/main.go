// Package main provides the entry point for linescope-server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/linescope/linescope-go/internal/core/domain"
	"github.com/linescope/linescope-go/internal/core/service"
	"github.com/linescope/linescope-go/internal/framefeed"
	"github.com/linescope/linescope-go/internal/infra/buildinfo"
	"github.com/linescope/linescope-go/internal/infra/confloader"
	"github.com/linescope/linescope-go/internal/infra/shutdown"
	"github.com/linescope/linescope-go/internal/scheduler"
	"github.com/linescope/linescope-go/internal/server/config"
	"github.com/linescope/linescope-go/internal/server/httpserver"
	"github.com/linescope/linescope-go/internal/server/intakeserver"
	"github.com/linescope/linescope-go/internal/server/mqttintake"
	"github.com/linescope/linescope-go/internal/storage/cache"
	"github.com/linescope/linescope-go/internal/storage/window"
	"github.com/linescope/linescope-go/internal/telemetry/logger"
	"github.com/linescope/linescope-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, slogLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting linescope-server",
		"version", buildinfo.Version,
		"config", *configFile)

	// Metrics registry
	metrics := metric.NewRegistry()

	// Window store behind the snapshot cache
	store := window.New(cfg.Storage.DataFile, cfg.Storage.WindowCap, slogLogger)
	snapCache := cache.New(slogLogger, cache.WithReloadTimeout(cfg.Storage.ReloadTimeout))
	win := cache.NewWindow(snapCache, store)

	// Services
	sensorSvc := service.NewSensorService(win, slogLogger)
	collector := service.NewCollector(win, service.NewGenerator(collectorSeed(cfg)), cfg.Collector.Interval, slogLogger)

	// Frame feed
	counter := framefeed.NewCounter(cfg.Storage.CounterFile)
	composer := framefeed.NewComposer(cfg.Storage.BaseImage, cfg.Stream.JPEGQuality)
	feed := framefeed.NewFeed(counter, composer, cfg.Stream.FrameInterval, slogLogger)

	// Maintenance scheduler: sampling pass plus a metrics sync
	sync := newMetricsSync(metrics, store, snapCache, feed)
	sched := scheduler.New(cfg.Collector.Interval, slogLogger,
		scheduler.Job{
			Name: "collect",
			Run: func(ctx context.Context, scheduled time.Time) error {
				n, err := collector.Collect(ctx, scheduled)
				if err != nil {
					return err
				}
				if n > 0 {
					metrics.ReadingsWritten.Add(float64(n))
				}
				return nil
			},
		},
		scheduler.Job{
			Name: "metrics-sync",
			Run: func(ctx context.Context, _ time.Time) error {
				return sync.run(ctx, sensorSvc)
			},
		},
	)
	sync.bindScheduler(sched)
	sched.Start()

	// HTTP server
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		SensorService: sensorSvc,
		Feed:          feed,
		Metrics:       metrics,
		Logger:        slogLogger,
		RateLimit:     cfg.Server.HTTP.RateLimit,
		RateBurst:     cfg.Server.HTTP.RateBurst,
	})
	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router)

	// Optional intakes
	var intake *intakeserver.Server
	if cfg.Server.Intake.Enabled {
		intake = intakeserver.New(intakeserver.Config{
			Addr:        cfg.Server.Intake.Addr,
			MaxConns:    cfg.Server.Intake.MaxConns,
			ReadTimeout: cfg.Server.Intake.ReadTimeout,
		}, sensorSvc, metrics, slogLogger)
		if err := intake.Start(); err != nil {
			return fmt.Errorf("start intake server: %w", err)
		}
	}

	var mqtt *mqttintake.Subscriber
	if cfg.Server.MQTT.Enabled {
		mqtt = mqttintake.New(mqttintake.Config{
			Broker:   cfg.Server.MQTT.Broker,
			Topic:    cfg.Server.MQTT.Topic,
			ClientID: cfg.Server.MQTT.ClientID,
		}, sensorSvc, metrics, slogLogger)
		if err := mqtt.Start(context.Background()); err != nil {
			return fmt.Errorf("start mqtt intake: %w", err)
		}
	}

	// Reload the log level when the config file changes.
	var watcher *confloader.Watcher
	if *configFile != "" {
		watcher, err = startConfigWatcher(*configFile, slogLogger)
		if err != nil {
			log.Warn("config watcher unavailable", "error", err)
		}
	}

	// Shutdown hooks run in reverse order of startup.
	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	if watcher != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			return watcher.Stop()
		})
	}
	if mqtt != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down MQTT intake")
			return mqtt.Shutdown(ctx)
		})
	}
	if intake != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down intake server")
			return intake.Shutdown(ctx)
		})
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping scheduler")
		stopCtx, cancel := context.WithTimeout(ctx, cfg.Collector.StopTimeout)
		defer cancel()
		return sched.Stop(stopCtx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger initializes the structured logger. Returns both the
// logger interface and a slog.Logger for components that need it.
func initLogger(cfg *config.ServerConfig) (logger.Logger, *slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.SetDefault(log)
	return log, logger.Slog(log), nil
}

// collectorSeed derives a generator seed: configured when nonzero,
// clock-based otherwise.
func collectorSeed(cfg *config.ServerConfig) uint64 {
	if cfg.Collector.Seed != 0 {
		return cfg.Collector.Seed
	}
	return uint64(time.Now().UnixNano())
}

// startConfigWatcher reloads the log level when the config file is
// rewritten. Other settings require a restart.
func startConfigWatcher(configFile string, slogLogger *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(slogLogger))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		watcher.Stop()
		return nil, err
	}
	watcher.OnChange(func(string) {
		cfg, err := loadConfig(configFile)
		if err != nil {
			slogLogger.Warn("config reload skipped", "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		slogLogger.Info("log level reloaded", "level", cfg.Log.Level)
	})
	watcher.StartAsync()
	return watcher, nil
}

// metricsSync mirrors component counters into the Prometheus registry.
// The sources keep their own monotonic counts, so each pass publishes
// the delta since the previous one.
type metricsSync struct {
	metrics *metric.Registry
	store   *window.Store
	cache   *cache.Cache
	feed    *framefeed.Feed

	sched *scheduler.Scheduler

	lastCache   cache.Stats
	lastSched   scheduler.Stats
	lastFrames  int64
	lastDropped int64
}

func newMetricsSync(metrics *metric.Registry, store *window.Store, c *cache.Cache, feed *framefeed.Feed) *metricsSync {
	return &metricsSync{metrics: metrics, store: store, cache: c, feed: feed}
}

// bindScheduler is called once the scheduler exists; the sync job is
// itself one of its jobs.
func (m *metricsSync) bindScheduler(s *scheduler.Scheduler) {
	m.sched = s
}

func (m *metricsSync) run(ctx context.Context, svc *service.SensorService) error {
	cs := m.cache.Stats()
	m.metrics.CacheHits.Add(float64(cs.Hits - m.lastCache.Hits))
	m.metrics.CacheMisses.Add(float64(cs.Misses - m.lastCache.Misses))
	m.metrics.CacheReloads.Add(float64(cs.Reloads - m.lastCache.Reloads))
	m.metrics.CacheStale.Add(float64(cs.Stale - m.lastCache.Stale))
	m.lastCache = cs

	if m.sched != nil {
		ss := m.sched.Stats()
		m.metrics.CollectorTicks.Add(float64(ss.Ticks - m.lastSched.Ticks))
		m.metrics.CollectorSkips.Add(float64(ss.Skips - m.lastSched.Skips))
		m.metrics.CollectorFailures.Add(float64(ss.Failures - m.lastSched.Failures))
		m.lastSched = ss
	}

	dropped, _ := m.store.FaultCounts()
	m.metrics.RowsDropped.Add(float64(dropped - m.lastDropped))
	m.lastDropped = dropped

	frames := m.feed.FramesServed()
	m.metrics.FramesServed.Add(float64(frames - m.lastFrames))
	m.lastFrames = frames
	m.metrics.StreamSessions.Set(float64(m.feed.ActiveSessions()))

	readings, err := svc.ReadAll(ctx)
	if err != nil {
		// No store file yet, such as before the first collect. The
		// gauge stays at zero; the query surface reports the outage.
		if domain.IsDomainError(err, domain.ErrSourceUnavailable.Code) {
			m.metrics.WindowReadings.Set(0)
			return nil
		}
		return err
	}
	m.metrics.WindowReadings.Set(float64(len(readings)))
	return nil
}
