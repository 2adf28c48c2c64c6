package framefeed

import (
	"os"
	"path/filepath"
	"testing"
)

func counterFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "count.txt")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("seed counter file: %v", err)
		}
	}
	return path
}

func TestCounter_SequenceFromPersistedValue(t *testing.T) {
	c := NewCounter(counterFile(t, "42"))

	for want := 42; want <= 51; want++ {
		got, err := c.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Fatalf("Next = %d, want %d", got, want)
		}
	}
}

func TestCounter_MissingFileStartsAtZero(t *testing.T) {
	c := NewCounter(counterFile(t, ""))
	if got, _ := c.Next(); got != 0 {
		t.Fatalf("Next = %d, want 0", got)
	}
}

func TestCounter_CorruptFileStartsAtZero(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "not a number"},
		{"negative", "-5"},
		{"too large", "150"},
		{"empty file", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCounter(counterFile(t, tt.content))
			if got, _ := c.Next(); got != 0 {
				t.Fatalf("Next = %d, want 0", got)
			}
		})
	}
}

func TestCounter_WrapsAtModulus(t *testing.T) {
	c := NewCounter(counterFile(t, "99"))
	if got, _ := c.Next(); got != 99 {
		t.Fatalf("Next = %d, want 99", got)
	}
	if got, _ := c.Next(); got != 0 {
		t.Fatalf("Next after wrap = %d, want 0", got)
	}
}

func TestCounter_PersistsAcrossInstances(t *testing.T) {
	path := counterFile(t, "10")

	c1 := NewCounter(path)
	for i := 0; i < 5; i++ {
		if _, err := c1.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	// A new instance reads the file, as after a restart.
	c2 := NewCounter(path)
	if got, _ := c2.Next(); got != 15 {
		t.Fatalf("Next after restart = %d, want 15", got)
	}
}

func TestCounter_FileHoldsNextValue(t *testing.T) {
	path := counterFile(t, "")
	c := NewCounter(path)
	if _, err := c.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "1" {
		t.Fatalf("file = %q, want \"1\"", raw)
	}
}
