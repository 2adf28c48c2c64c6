package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to configuration files. It watches the
// containing directory rather than the file itself so editor-style
// atomic replaces (write temp, rename over) are still seen.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *slog.Logger

	mu        sync.RWMutex
	files     map[string]struct{}
	callbacks []func(string)

	stop chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// NewWatcher returns a Watcher with no files registered yet.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		logger: slog.Default(),
		files:  make(map[string]struct{}),
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch registers a file. Events for other files in the same
// directory are ignored.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching configuration file", "path", abs)
	return nil
}

// OnChange registers a callback invoked with the path of a changed
// watched file.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// StartAsync runs the event loop on its own goroutine until Stop.
func (w *Watcher) StartAsync() {
	go w.run()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.dispatch(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("configuration watcher error", "error", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) dispatch(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.RLock()
	_, watched := w.files[abs]
	callbacks := w.callbacks
	w.mu.RUnlock()

	if !watched {
		return
	}
	w.logger.Debug("configuration file changed", "path", abs)
	for _, cb := range callbacks {
		cb(abs)
	}
}

// Stop ends the event loop and releases the underlying watcher.
func (w *Watcher) Stop() error {
	close(w.stop)
	return w.fsw.Close()
}
