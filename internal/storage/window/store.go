package window

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linescope/linescope-go/internal/core/domain"
)

// DefaultMaxEntries is the default window cap: one day of readings at
// the default 30-minute interval.
const DefaultMaxEntries = 48

// Marker is the cheap-to-probe change indicator of a backing file:
// modification time plus size, obtained without reading content.
type Marker struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether two markers observe the same file state.
func (m Marker) Equal(other Marker) bool {
	return m.Size == other.Size && m.ModTime.Equal(other.ModTime)
}

// Store is the rolling window over a single backing file. It is safe
// for concurrent use; Append serializes writers, and the atomic
// replace on write keeps concurrent readers consistent.
type Store struct {
	path   string
	max    int
	logger *slog.Logger

	mu sync.Mutex // serializes the read-modify-replace write path

	dropped    atomic.Int64
	nullFields atomic.Int64
}

// New creates a Store over the backing file at path, capped at max
// readings (DefaultMaxEntries when max <= 0).
func New(path string, max int, logger *slog.Logger) *Store {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, max: max, logger: logger}
}

// Path returns the backing file path; it identifies this source to the
// cache layer.
func (s *Store) Path() string {
	return s.path
}

// MaxEntries returns the window cap.
func (s *Store) MaxEntries() int {
	return s.max
}

// Marker probes the backing file's change marker without reading it.
// A missing file yields ErrSourceUnavailable.
func (s *Store) Marker() (Marker, error) {
	st, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Marker{}, domain.ErrSourceUnavailable.WithDetails(s.path)
		}
		return Marker{}, domain.ErrSourceUnavailable.WithDetails(s.path).WithCause(err)
	}
	return Marker{ModTime: st.ModTime(), Size: st.Size()}, nil
}

// Load decodes the full window in ascending timestamp order. Row-level
// faults are tolerated and logged; a missing file yields
// ErrSourceUnavailable.
func (s *Store) Load() ([]domain.Reading, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSourceUnavailable.WithDetails(s.path)
		}
		return nil, domain.ErrSourceUnavailable.WithDetails(s.path).WithCause(err)
	}
	defer f.Close()

	readings, stats, err := decode(f)
	if err != nil {
		return nil, err
	}
	if stats.Dropped > 0 || stats.NullFields > 0 {
		s.dropped.Add(int64(stats.Dropped))
		s.nullFields.Add(int64(stats.NullFields))
		s.logger.Warn("window decoded with faults",
			"path", s.path,
			"rows", stats.Rows,
			"dropped", stats.Dropped,
			"null_fields", stats.NullFields)
	}
	return readings, nil
}

// FaultCounts returns cumulative decode fault totals: rows dropped and
// null fields substituted across all loads of this store.
func (s *Store) FaultCounts() (dropped, nullFields int64) {
	return s.dropped.Load(), s.nullFields.Load()
}

// Append validates the reading, appends it to the persisted window and
// evicts from the head past the cap. A zero timestamp is rejected with
// ErrSchemaViolation without touching the file.
func (s *Store) Append(reading domain.Reading) error {
	_, err := s.AppendAll([]domain.Reading{reading})
	return err
}

// AppendAll appends a batch in one replace of the backing file and
// returns the number of readings accepted. Readings with invalid
// timestamps are rejected individually (logged, skipped); the batch
// continues.
func (s *Store) AppendAll(batch []domain.Reading) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted := batch[:0:0]
	var rejected error
	for _, r := range batch {
		if err := r.Validate(); err != nil {
			s.dropped.Add(1)
			s.logger.Warn("rejecting reading", "error", err)
			rejected = err
			continue
		}
		accepted = append(accepted, r)
	}
	if len(accepted) == 0 {
		if rejected != nil {
			return 0, rejected
		}
		return 0, nil
	}

	current, err := s.Load()
	if err != nil && !domain.IsDomainError(err, domain.ErrSourceUnavailable.Code) {
		return 0, err
	}

	current = append(current, accepted...)

	// Intake can deliver readings out of order; the window's ordering
	// invariant holds by sorting before persist. Stable keeps arrival
	// order for equal timestamps.
	sort.SliceStable(current, func(i, j int) bool {
		return current[i].Timestamp.Before(current[j].Timestamp)
	})

	if len(current) > s.max {
		evict := len(current) - s.max
		current = current[evict:]
		s.logger.Debug("evicted oldest readings", "count", evict, "cap", s.max)
	}

	if err := s.replace(current); err != nil {
		return 0, err
	}
	return len(accepted), nil
}

// replace writes the whole window to a temporary file and renames it
// over the backing file.
func (s *Store) replace(readings []domain.Reading) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("window: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("window: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := encode(tmp, readings); err != nil {
		tmp.Close()
		return fmt.Errorf("window: encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("window: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("window: close: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("window: rename: %w", err)
	}
	return nil
}
