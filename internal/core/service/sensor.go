package service

import (
	"context"
	"log/slog"
	"math"

	"github.com/linescope/linescope-go/internal/core/domain"
)

// SensorWindow is the storage dependency of the sensor service: a
// bounded, time-ordered window of readings with snapshot reads and
// batch appends.
type SensorWindow interface {
	// Snapshot returns the current window in ascending timestamp order.
	Snapshot(ctx context.Context) ([]domain.Reading, error)

	// AppendAll validates and persists a batch, returning how many
	// readings were accepted.
	AppendAll(batch []domain.Reading) (int, error)

	// MaxEntries returns the window cap.
	MaxEntries() int
}

// SensorService serves window reads, device intake and aggregate
// statistics.
type SensorService struct {
	window SensorWindow
	logger *slog.Logger
}

// NewSensorService creates a SensorService over the given window.
func NewSensorService(window SensorWindow, logger *slog.Logger) *SensorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorService{window: window, logger: logger}
}

// ReadAll returns the full window in ascending timestamp order. An
// unreachable backing source is reported as ErrSourceUnavailable, not
// as an empty window; callers must be able to tell "no data yet" from
// "store gone".
func (s *SensorService) ReadAll(ctx context.Context) ([]domain.Reading, error) {
	readings, err := s.window.Snapshot(ctx)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCacheStale.Code) {
			s.logger.Warn("serving stale window", "error", err)
			return readings, nil
		}
		return nil, err
	}
	return readings, nil
}

// ReadLatest returns the most recent reading. An empty window yields
// ErrEmptyWindow.
func (s *SensorService) ReadLatest(ctx context.Context) (domain.Reading, error) {
	readings, err := s.ReadAll(ctx)
	if err != nil {
		return domain.Reading{}, err
	}
	if len(readings) == 0 {
		return domain.Reading{}, domain.ErrEmptyWindow
	}
	return readings[len(readings)-1], nil
}

// ReadN returns the most recent limit readings in ascending order.
// The limit is clamped to the window length; limit <= 0 yields an
// empty result.
func (s *SensorService) ReadN(ctx context.Context, limit int) ([]domain.Reading, error) {
	readings, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []domain.Reading{}, nil
	}
	if limit > len(readings) {
		limit = len(readings)
	}
	return readings[len(readings)-limit:], nil
}

// Ingest validates and persists externally produced readings, such as
// device intake batches. It returns how many were accepted.
func (s *SensorService) Ingest(ctx context.Context, batch []domain.Reading) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	n, err := s.window.AppendAll(batch)
	if err != nil {
		return n, err
	}
	if n < len(batch) {
		s.logger.Warn("ingest dropped invalid readings",
			"accepted", n,
			"rejected", len(batch)-n)
	}
	return n, nil
}

// ChannelStats aggregates one sensor channel over the window. Count is
// the number of readings that carried the channel.
type ChannelStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// WindowStats aggregates the full window.
type WindowStats struct {
	Count       int           `json:"count"`
	First       string        `json:"first,omitempty"`
	Last        string        `json:"last,omitempty"`
	SwaySpeed   *ChannelStats `json:"sway_speed_dps,omitempty"`
	Temperature *ChannelStats `json:"temperature_C,omitempty"`
	Humidity    *ChannelStats `json:"humidity_RH,omitempty"`
	Pressure    *ChannelStats `json:"pressure_hPa,omitempty"`
	Lux         *ChannelStats `json:"lux,omitempty"`
}

// Stats computes per-channel min, max and average over the window,
// skipping absent channel values. An empty window yields
// ErrEmptyWindow.
func (s *SensorService) Stats(ctx context.Context) (WindowStats, error) {
	readings, err := s.ReadAll(ctx)
	if err != nil {
		return WindowStats{}, err
	}
	if len(readings) == 0 {
		return WindowStats{}, domain.ErrEmptyWindow
	}

	stats := WindowStats{
		Count: len(readings),
		First: domain.FormatTimestamp(readings[0].Timestamp),
		Last:  domain.FormatTimestamp(readings[len(readings)-1].Timestamp),
	}

	channels := []struct {
		pick func(domain.Reading) *float64
		dst  **ChannelStats
	}{
		{func(r domain.Reading) *float64 { return r.SwaySpeed }, &stats.SwaySpeed},
		{func(r domain.Reading) *float64 { return r.Temperature }, &stats.Temperature},
		{func(r domain.Reading) *float64 { return r.Humidity }, &stats.Humidity},
		{func(r domain.Reading) *float64 { return r.Pressure }, &stats.Pressure},
		{func(r domain.Reading) *float64 { return r.Lux }, &stats.Lux},
	}

	for _, ch := range channels {
		agg := ChannelStats{Min: math.Inf(1), Max: math.Inf(-1)}
		sum := 0.0
		for _, r := range readings {
			v := ch.pick(r)
			if v == nil {
				continue
			}
			agg.Count++
			sum += *v
			if *v < agg.Min {
				agg.Min = *v
			}
			if *v > agg.Max {
				agg.Max = *v
			}
		}
		if agg.Count == 0 {
			continue
		}
		agg.Avg = round2(sum / float64(agg.Count))
		agg.Min = round2(agg.Min)
		agg.Max = round2(agg.Max)
		cs := agg
		*ch.dst = &cs
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
