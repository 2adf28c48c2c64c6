package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linescope/linescope-go/internal/core/domain"
)

// DefaultCollectInterval is the sampling cadence: the anchor grid the
// collector aligns readings to.
const DefaultCollectInterval = 30 * time.Minute

// Collector appends one synthetic reading per elapsed sampling
// interval. It is the unit of work the maintenance scheduler runs.
type Collector struct {
	window   SensorWindow
	gen      *Generator
	interval time.Duration
	logger   *slog.Logger
}

// NewCollector creates a Collector over the given window and
// generator. interval <= 0 selects DefaultCollectInterval.
func NewCollector(window SensorWindow, gen *Generator, interval time.Duration, logger *slog.Logger) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{window: window, gen: gen, interval: interval, logger: logger}
}

// Interval returns the sampling cadence.
func (c *Collector) Interval() time.Duration {
	return c.interval
}

// Collect appends readings for every interval anchor that has elapsed
// since the newest stored reading, up to and including the anchor at
// or before now. An empty or missing window gets a single reading at
// the current anchor. It returns how many readings were appended.
//
// Anchors are floored wall-clock times: with a 30-minute interval a
// reading collected at 14:42 is stamped 14:30, and a gap since 13:00
// is filled with 13:30, 14:00 and 14:30.
func (c *Collector) Collect(ctx context.Context, now time.Time) (int, error) {
	anchor := now.Truncate(c.interval)

	var last time.Time
	readings, err := c.window.Snapshot(ctx)
	if err != nil && !domain.IsDomainError(err, domain.ErrSourceUnavailable.Code) {
		return 0, err
	}
	if len(readings) > 0 {
		last = readings[len(readings)-1].Timestamp
	}

	var batch []domain.Reading
	switch {
	case last.IsZero():
		batch = []domain.Reading{c.gen.At(anchor)}
	case !last.Before(anchor):
		// Window is already current for this anchor.
		return 0, nil
	default:
		// Catch up one reading per missed anchor. Never generate more
		// than the window holds; older ones would be evicted anyway.
		for ts := last.Add(c.interval).Truncate(c.interval); !ts.After(anchor); ts = ts.Add(c.interval) {
			batch = append(batch, c.gen.At(ts))
			if len(batch) > c.window.MaxEntries() {
				batch = batch[1:]
			}
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}

	n, err := c.window.AppendAll(batch)
	if err != nil {
		return n, err
	}
	if n > 1 {
		c.logger.Info("collector caught up missed intervals",
			"appended", n,
			"anchor", domain.FormatTimestamp(anchor))
	}
	return n, nil
}
