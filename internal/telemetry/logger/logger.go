// Package logger wraps log/slog with runtime level control.
//
// The server builds one Logger at startup and hands the underlying
// *slog.Logger to its components; the shared level var lets a config
// reload change verbosity without rebuilding anything.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the leveled structured logger used at the top of the
// process. Components below main take *slog.Logger directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Config selects the output level, format and destination.
type Config struct {
	// Level is debug, info, warn or error.
	Level string
	// Format is json or text.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// level is shared by every logger built here so SetLevel takes effect
// everywhere at once.
var level = new(slog.LevelVar)

type stdLogger struct {
	sl *slog.Logger
}

// New builds a Logger from cfg. Unknown levels and formats are
// rejected rather than silently defaulted.
func New(cfg Config) (Logger, error) {
	lv, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level.Set(lv)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json", "":
		handler = slog.NewJSONHandler(out, opts)
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return &stdLogger{sl: slog.New(handler)}, nil
}

func (l *stdLogger) Debug(msg string, args ...any) { l.sl.Debug(msg, args...) }
func (l *stdLogger) Info(msg string, args ...any)  { l.sl.Info(msg, args...) }
func (l *stdLogger) Warn(msg string, args ...any)  { l.sl.Warn(msg, args...) }
func (l *stdLogger) Error(msg string, args ...any) { l.sl.Error(msg, args...) }

func (l *stdLogger) With(args ...any) Logger {
	return &stdLogger{sl: l.sl.With(args...)}
}

// SetLevel adjusts the shared level at runtime. Unknown values are
// ignored so a bad config reload cannot silence the process.
func SetLevel(name string) {
	if lv, err := parseLevel(name); err == nil {
		level.Set(lv)
	}
}

// Slog unwraps the underlying *slog.Logger for components that take
// the standard type. Falls back to slog.Default().
func Slog(l Logger) *slog.Logger {
	if sl, ok := l.(*stdLogger); ok {
		return sl.sl
	}
	return slog.Default()
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

var fallback atomic.Pointer[stdLogger]

func init() {
	l, _ := New(Config{})
	fallback.Store(l.(*stdLogger))
}

// SetDefault installs the process-wide logger returned by Default.
func SetDefault(l Logger) {
	if sl, ok := l.(*stdLogger); ok {
		fallback.Store(sl)
	}
}

// Default returns the process-wide logger.
func Default() Logger {
	return fallback.Load()
}
