package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/linescope/linescope-go/internal/core/domain"
	"github.com/linescope/linescope-go/internal/storage/window"
)

// DefaultReloadTimeout bounds how long a Get waits on a source reload
// before falling back to the last good snapshot.
const DefaultReloadTimeout = 2 * time.Second

// Source is the backing store the cache reads through. The window
// Store satisfies it.
type Source interface {
	// Path identifies the source; it is the cache key.
	Path() string
	// Marker probes the source's change marker without reading it.
	Marker() (window.Marker, error)
	// Load decodes the full window.
	Load() ([]domain.Reading, error)
}

// entry is one cached snapshot together with the marker it was loaded
// under. Snapshots are never mutated after insertion; readers share
// the slice.
type entry struct {
	marker   window.Marker
	readings []domain.Reading
	loadedAt time.Time
}

// Cache is a read-through snapshot cache keyed by source path. It is
// safe for concurrent use.
type Cache struct {
	reloadTimeout time.Duration
	logger        *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group

	hits    atomic.Int64
	misses  atomic.Int64
	reloads atomic.Int64
	stale   atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithReloadTimeout overrides the reload timeout.
func WithReloadTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.reloadTimeout = d
		}
	}
}

// New creates an empty cache.
func New(logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		reloadTimeout: DefaultReloadTimeout,
		logger:        logger,
		entries:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current snapshot for src. The source marker is
// probed on every call; an unchanged marker serves the cached snapshot
// without touching the source content. A changed (or absent) marker
// triggers a reload collapsed across concurrent callers.
//
// When the reload fails or exceeds the timeout and a last good
// snapshot exists, that snapshot is served; a timed-out reload is
// reported via ErrCacheStale alongside the stale data. With no last
// good snapshot the source error is returned.
func (c *Cache) Get(ctx context.Context, src Source) ([]domain.Reading, error) {
	key := src.Path()

	marker, markerErr := src.Marker()
	if markerErr != nil {
		// Source gone. Serve the last good snapshot if we have one.
		if cached := c.lookup(key); cached != nil {
			c.stale.Add(1)
			c.logger.Warn("source unavailable, serving stale snapshot",
				"source", key,
				"loaded_at", cached.loadedAt,
				"error", markerErr)
			return cached.readings, nil
		}
		c.misses.Add(1)
		return nil, markerErr
	}

	if cached := c.lookup(key); cached != nil && cached.marker.Equal(marker) {
		c.hits.Add(1)
		return cached.readings, nil
	}
	c.misses.Add(1)

	type loaded struct {
		readings []domain.Reading
		marker   window.Marker
	}

	ch := c.group.DoChan(key, func() (any, error) {
		c.reloads.Add(1)
		// Re-probe inside the flight so the stored marker matches the
		// content actually read, not the caller's earlier observation.
		m, err := src.Marker()
		if err != nil {
			return nil, err
		}
		readings, err := src.Load()
		if err != nil {
			return nil, err
		}
		c.store(key, &entry{marker: m, readings: readings, loadedAt: time.Now()})
		return loaded{readings: readings, marker: m}, nil
	})

	timeout := time.NewTimer(c.reloadTimeout)
	defer timeout.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			if cached := c.lookup(key); cached != nil {
				c.stale.Add(1)
				c.logger.Warn("reload failed, serving stale snapshot",
					"source", key,
					"loaded_at", cached.loadedAt,
					"error", res.Err)
				return cached.readings, nil
			}
			return nil, res.Err
		}
		return res.Val.(loaded).readings, nil

	case <-timeout.C:
		c.group.Forget(key)
		if cached := c.lookup(key); cached != nil {
			c.stale.Add(1)
			c.logger.Warn("reload timed out, serving stale snapshot",
				"source", key,
				"loaded_at", cached.loadedAt,
				"timeout", c.reloadTimeout)
			return cached.readings, domain.ErrCacheStale.WithDetails(key)
		}
		return nil, domain.ErrSourceUnavailable.WithDetails(key).
			WithCause(domain.ErrCacheStale)

	case <-ctx.Done():
		c.group.Forget(key)
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached snapshot for a source path. The next Get
// reloads unconditionally.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Reloads int64
	Stale   int64
	Entries int
}

// Stats returns the current counter values.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Reloads: c.reloads.Load(),
		Stale:   c.stale.Load(),
		Entries: n,
	}
}

func (c *Cache) lookup(key string) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

func (c *Cache) store(key string, e *entry) {
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}
