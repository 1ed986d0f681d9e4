package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dupecull/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MinSize != 0 {
		t.Errorf("MinSize = %d, want 0", cfg.MinSize)
	}
	if cfg.MaxSize != 1_000_000_000_000 {
		t.Errorf("MaxSize = %d, want 1_000_000_000_000", cfg.MaxSize)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Mode != types.ModeQuarantine {
		t.Errorf("Mode = %s, want %s", cfg.Mode, types.ModeQuarantine)
	}
	if cfg.Apply {
		t.Error("Apply should default to false")
	}
	if cfg.Confirm {
		t.Error("Confirm should default to false")
	}
	if cfg.CacheEnabled {
		t.Error("CacheEnabled should default to false")
	}
	if cfg.ProgressInterval != 500*time.Millisecond {
		t.Errorf("ProgressInterval = %v, want 500ms", cfg.ProgressInterval)
	}

	cfg.Root = "/tmp"
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config with root should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Root = "/data"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing root",
			mutate:  func(c *Config) { c.Root = "" },
			wantErr: "root is required",
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Mode = "shred" },
			wantErr: "invalid mode",
		},
		{
			name:    "workers too low",
			mutate:  func(c *Config) { c.Workers = 0 },
			wantErr: "workers must be between 1 and 128",
		},
		{
			name:    "workers too high",
			mutate:  func(c *Config) { c.Workers = 129 },
			wantErr: "workers must be between 1 and 128",
		},
		{
			name:    "negative min size",
			mutate:  func(c *Config) { c.MinSize = -1 },
			wantErr: "min_size cannot be negative",
		},
		{
			name: "max below min",
			mutate: func(c *Config) {
				c.MinSize = 100
				c.MaxSize = 50
			},
			wantErr: "must be >= min_size",
		},
		{
			name:    "zero progress interval",
			mutate:  func(c *Config) { c.ProgressInterval = 0 },
			wantErr: "progress_interval must be positive",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: "invalid log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolvedLogDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = "/data/photos"

	if got := cfg.ResolvedLogDir(); got != filepath.Join("/data/photos", LogDirName) {
		t.Errorf("ResolvedLogDir() = %s, want under root", got)
	}

	cfg.LogDir = "/var/log/dupecull"
	if got := cfg.ResolvedLogDir(); got != "/var/log/dupecull" {
		t.Errorf("ResolvedLogDir() = %s, want override", got)
	}
}

func TestNormalizedSkipExtensions(t *testing.T) {
	cfg := Config{SkipExtensions: []string{"ISO", ".VMDK", "  mp4 ", ""}}

	got := cfg.NormalizedSkipExtensions()
	want := []string{".iso", ".vmdk", ".mp4"}
	if len(got) != len(want) {
		t.Fatalf("got %d extensions, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("extension[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dupecull.yaml")
	data := `root: /data/photos
mode: report
workers: 8
min_size: 1024
skip_extensions:
  - iso
  - .vmdk
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Root != "/data/photos" {
		t.Errorf("Root = %q, want /data/photos", cfg.Root)
	}
	if cfg.Mode != types.ModeReport {
		t.Errorf("Mode = %s, want report", cfg.Mode)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.MinSize != 1024 {
		t.Errorf("MinSize = %d, want 1024", cfg.MinSize)
	}
	// Unset keys keep their defaults.
	if cfg.MaxSize != 1_000_000_000_000 {
		t.Errorf("MaxSize = %d, want default", cfg.MaxSize)
	}
	if len(cfg.SkipExtensions) != 2 {
		t.Errorf("SkipExtensions = %v, want 2 entries", cfg.SkipExtensions)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with explicit missing file should fail")
	}
}
