package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"
)

// Hook is a cleanup function run during shutdown. The context it
// receives is bounded by the handler's timeout.
type Hook func(context.Context) error

// Handler waits for a termination signal and then runs registered
// hooks in reverse registration order, so dependents stop before the
// things they depend on.
type Handler struct {
	timeout time.Duration

	mu    sync.Mutex
	hooks []Hook

	signals chan os.Signal
	done    chan struct{}
}

// NewHandler returns a Handler whose hooks share the given timeout.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout: timeout,
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a hook. Hooks registered later run earlier.
func (h *Handler) OnShutdown(hook Hook) {
	h.mu.Lock()
	h.hooks = append(h.hooks, hook)
	h.mu.Unlock()
}

// Wait blocks until SIGINT or SIGTERM arrives, then runs every hook in
// reverse order under the configured timeout. A failing hook does not
// stop the rest; all hook errors are joined into the return value.
func (h *Handler) Wait() error {
	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(h.signals)
	<-h.signals

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	defer close(h.done)

	h.mu.Lock()
	hooks := slices.Clone(h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Done is closed after Wait has finished running all hooks.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
