package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	// Set environment variables
	os.Setenv("BENCH_EVAL_K", "20")
	os.Setenv("BENCH_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("BENCH_EVAL_K")
		os.Unsetenv("BENCH_LOG_LEVEL")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Eval.K != 20 {
		t.Errorf("Eval.K = %d, want 20", cfg.Eval.K)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
qdrant:
  host: "custom"
  port: 7334
embedding:
  url: "http://embed:8091"
  dim: 1024
eval:
  k: 5
  baseline: plain
strategies:
  - name: plain
    model: bge-small-en
    collection: plain
  - name: nudged
    model: bge-small-en-nudge
    collection: nudged
log:
  level: warn
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Qdrant.Host != "custom" {
		t.Errorf("Qdrant.Host = %s, want custom", cfg.Qdrant.Host)
	}

	if cfg.Qdrant.Port != 7334 {
		t.Errorf("Qdrant.Port = %d, want 7334", cfg.Qdrant.Port)
	}

	if cfg.Embedding.Dim != 1024 {
		t.Errorf("Embedding.Dim = %d, want 1024", cfg.Embedding.Dim)
	}

	if cfg.Eval.K != 5 {
		t.Errorf("Eval.K = %d, want 5", cfg.Eval.K)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}

	if len(cfg.Strategies) != 2 {
		t.Fatalf("len(Strategies) = %d, want 2", len(cfg.Strategies))
	}

	s, ok := cfg.Strategy("nudged")
	if !ok {
		t.Fatal("Strategy(nudged) not found")
	}
	if s.Model != "bge-small-en-nudge" {
		t.Errorf("Strategy(nudged).Model = %s, want bge-small-en-nudge", s.Model)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "bad qdrant port",
			mutate:  func(c *Config) { c.Qdrant.Port = 0 },
			wantErr: "qdrant port",
		},
		{
			name:    "zero embedding dim",
			mutate:  func(c *Config) { c.Embedding.Dim = 0 },
			wantErr: "embedding dim",
		},
		{
			name:    "bad cache type",
			mutate:  func(c *Config) { c.Cache.Type = "disk" },
			wantErr: "invalid cache type",
		},
		{
			name:    "bad bus type",
			mutate:  func(c *Config) { c.Bus.Type = "nats" },
			wantErr: "invalid bus type",
		},
		{
			name:    "zero eval k",
			mutate:  func(c *Config) { c.Eval.K = 0 },
			wantErr: "eval k",
		},
		{
			name: "duplicate strategy",
			mutate: func(c *Config) {
				c.Strategies = []StrategyConfig{
					{Name: "a", Model: "m", Collection: "a"},
					{Name: "a", Model: "m", Collection: "a2"},
				}
				c.Eval.Baseline = "a"
			},
			wantErr: "duplicate strategy",
		},
		{
			name: "unknown baseline",
			mutate: func(c *Config) {
				c.Strategies = []StrategyConfig{
					{Name: "a", Model: "m", Collection: "a"},
				}
				c.Eval.Baseline = "b"
			},
			wantErr: "baseline strategy",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
