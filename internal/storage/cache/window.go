package cache

import (
	"context"

	"github.com/linescope/linescope-go/internal/core/domain"
	"github.com/linescope/linescope-go/internal/storage/window"
)

// Window binds a cache to one window store: reads go through the
// cache, writes go straight to the store and drop the cached snapshot.
// It satisfies the service layer's window interface.
type Window struct {
	cache *Cache
	store *window.Store
}

// NewWindow binds c to s.
func NewWindow(c *Cache, s *window.Store) *Window {
	return &Window{cache: c, store: s}
}

// Snapshot returns the current decoded window via the cache.
func (w *Window) Snapshot(ctx context.Context) ([]domain.Reading, error) {
	return w.cache.Get(ctx, w.store)
}

// AppendAll persists a batch and invalidates the cached snapshot so
// the next read observes it even when the file marker is unchanged.
func (w *Window) AppendAll(batch []domain.Reading) (int, error) {
	n, err := w.store.AppendAll(batch)
	if n > 0 {
		w.cache.Invalidate(w.store.Path())
	}
	return n, err
}

// MaxEntries returns the underlying window cap.
func (w *Window) MaxEntries() int {
	return w.store.MaxEntries()
}
