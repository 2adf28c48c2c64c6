package framefeed

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// CounterModulus bounds the frame counter: values cycle in [0, 99].
const CounterModulus = 100

// Counter is a persisted cyclic frame counter. The backing file holds
// the next value as a bare decimal integer; every advance writes it
// through so a restart resumes the sequence instead of repeating it.
type Counter struct {
	path string

	mu     sync.Mutex
	val    int
	loaded bool
}

// NewCounter creates a Counter backed by the file at path. The file is
// read lazily on first use.
func NewCounter(path string) *Counter {
	return &Counter{path: path}
}

// Next returns the current counter value and advances the persisted
// sequence by one, wrapping at CounterModulus. The returned error
// reports a persistence failure; the in-memory sequence has advanced
// regardless, so callers can keep serving frames.
func (c *Counter) Next() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.val = c.load()
		c.loaded = true
	}

	n := c.val
	c.val = (c.val + 1) % CounterModulus
	return n, c.persist(c.val)
}

// Peek returns the next value without advancing.
func (c *Counter) Peek() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.val = c.load()
		c.loaded = true
	}
	return c.val
}

// load reads the persisted value. A missing file, unparsable content
// or out-of-range value all read as 0.
func (c *Counter) load() int {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || n < 0 || n >= CounterModulus {
		return 0
	}
	return n
}

// persist atomically replaces the backing file with the given value.
func (c *Counter) persist(n int) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create counter temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := fmt.Fprintf(tmp, "%d", n); err != nil {
		tmp.Close()
		return fmt.Errorf("write counter: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync counter: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close counter temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace counter file: %w", err)
	}
	return nil
}
