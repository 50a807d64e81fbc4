package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/archlens/archlens/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("default backend = %q, want file", cfg.Store.Backend)
	}
	if cfg.Regression.SeverePercent != 20 {
		t.Errorf("severe percent = %v, want 20", cfg.Regression.SeverePercent)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archlens.toml")
	content := `
[blend]
readability = 0.8
similarity = 0.2

[regression]
minor_percent = 3.0
moderate_percent = 8.0
severe_percent = 15.0
quality_floor = 0.4

[store]
backend = "redis"

[store.redis]
addr = "localhost:6380"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Blend.Readability != 0.8 || cfg.Blend.Similarity != 0.2 {
		t.Errorf("blend = %+v, want 0.8/0.2", cfg.Blend)
	}
	if cfg.Regression.SeverePercent != 15 {
		t.Errorf("severe percent = %v, want 15", cfg.Regression.SeverePercent)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.Redis.Addr != "localhost:6380" {
		t.Errorf("store = %+v", cfg.Store)
	}
	// Untouched sections keep their defaults.
	if cfg.Comparison.StructuralWeight != 0.6 {
		t.Errorf("structural weight = %v, want default 0.6", cfg.Comparison.StructuralWeight)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr = %q, want default :8080", cfg.Server.Addr)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Store.Backend != Default().Store.Backend {
		t.Error("empty path did not return defaults")
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `[store` + "\n"},
		{"unknown backend", "[store]\nbackend = \"cassandra\"\n"},
		{"non-increasing thresholds", "[regression]\nminor_percent = 10.0\nmoderate_percent = 10.0\nsevere_percent = 20.0\n"},
		{"out of range hash threshold", "[comparison]\nhash_distance_threshold = 100\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "archlens.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Load() code = %v, want INVALID_CONFIG", errors.GetCode(err))
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load(missing) code = %v, want INVALID_CONFIG", errors.GetCode(err))
	}
}
