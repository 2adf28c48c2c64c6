package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Server struct {
		Addr      string `koanf:"addr"`
		RateLimit int    `koanf:"rate_limit"`
	} `koanf:"server"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func defaults() *testConfig {
	cfg := &testConfig{}
	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Server.RateLimit = 100
	cfg.Log.Level = "info"
	return cfg
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoader_DefaultsSurviveEmptySources(t *testing.T) {
	cfg := defaults()
	if err := NewLoader().Load(cfg); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q, want default", cfg.Log.Level)
	}
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := writeYAML(t, "server:\n  addr: \"0.0.0.0:9000\"\nlog:\n  level: debug\n")

	cfg := defaults()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q, want file value", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Server.RateLimit != 100 {
		t.Errorf("RateLimit = %d, want untouched default 100", cfg.Server.RateLimit)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "log:\n  level: debug\n")
	t.Setenv("LINESCOPE_LOG_LEVEL", "warn")

	cfg := defaults()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q, want env value warn", cfg.Log.Level)
	}
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("LSTEST_LOG_LEVEL", "error")

	cfg := defaults()
	if err := NewLoader(WithEnvPrefix("LSTEST_")).Load(cfg); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Level = %q, want error", cfg.Log.Level)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	cfg := defaults()
	err := NewLoader(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))).Load(cfg)
	if err == nil {
		t.Fatal("Load() = nil, want error for missing file")
	}
}

func TestLoader_ReloadSeesNewFileContent(t *testing.T) {
	path := writeYAML(t, "log:\n  level: debug\n")
	loader := NewLoader(WithConfigFile(path))

	cfg := defaults()
	if err := loader.Load(cfg); err != nil {
		t.Fatalf("first Load() = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Level = %q, want debug", cfg.Log.Level)
	}

	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	cfg = defaults()
	if err := loader.Load(cfg); err != nil {
		t.Fatalf("second Load() = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q after reload, want warn", cfg.Log.Level)
	}
}

func TestLoader_EnvKeyMapping(t *testing.T) {
	l := NewLoader()
	tests := []struct {
		name string
		want string
	}{
		{"LINESCOPE_LOG_LEVEL", "log.level"},
		{"LINESCOPE_SERVER_ADDR", "server.addr"},
		{"LINESCOPE_COLLECTOR_INTERVAL", "collector.interval"},
	}
	for _, tt := range tests {
		if got := l.envKey(tt.name); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
