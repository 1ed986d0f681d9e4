// Package config defines the run configuration for dupecull and its
// file/environment loading. Flag handling lives in the CLI layer; this
// package only knows defaults, validation, and the config file shape.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"dupecull/internal/types"
)

const (
	// QuarantineDirName is the directory created under the scanned root to
	// hold relocated duplicates. Scans always exclude it.
	QuarantineDirName = "_DUPLICATE_QUARANTINE"

	// LogDirName is the directory created under the scanned root for run
	// logs, reports, and the hash cache. Scans always exclude it.
	LogDirName = "_DUPLICATE_LOGS"
)

// Config holds everything a cleaning run needs. Built from defaults, then an
// optional config file and DUPECULL_* environment variables, then CLI flags.
type Config struct {
	// Root is the directory tree to scan. Required.
	Root string `mapstructure:"root"`

	// ExcludePaths are absolute paths whose subtrees are never scanned.
	ExcludePaths []string `mapstructure:"exclude_paths"`

	// ExcludeGlobs are shell-style patterns matched case-insensitively
	// against the lowercased path and its basename.
	ExcludeGlobs []string `mapstructure:"exclude_globs"`

	// SkipExtensions are file suffixes to skip, matched case-insensitively.
	// Entries are normalized to a leading dot (".iso" and "iso" are equal).
	SkipExtensions []string `mapstructure:"skip_extensions"`

	// MinSize and MaxSize bound the byte sizes considered, inclusive.
	// Default: 0 and 1 TB.
	MinSize int64 `mapstructure:"min_size"`
	MaxSize int64 `mapstructure:"max_size"`

	// Workers is the hashing worker pool size.
	// Default: 4, Range: 1-128.
	Workers int `mapstructure:"workers"`

	// Mode selects what happens to duplicates: report, quarantine, or delete.
	// Default: quarantine.
	Mode types.Mode `mapstructure:"mode"`

	// Apply enables filesystem mutation. When false (the default) every
	// action is recorded as a dry run and nothing is touched.
	Apply bool `mapstructure:"apply"`

	// Confirm is the second safety gate required for delete mode with Apply.
	Confirm bool `mapstructure:"confirm"`

	// Interactive enables the per-group review prompt before dispatch.
	Interactive bool `mapstructure:"interactive"`

	// CacheEnabled turns on the persistent full-hash cache in the log dir.
	// Default: false.
	CacheEnabled bool `mapstructure:"cache"`

	// LogDir overrides where logs, reports, and the cache live.
	// Default: <root>/_DUPLICATE_LOGS.
	LogDir string `mapstructure:"log_dir"`

	// LogLevel is the zerolog level: trace, debug, info, warn, or error.
	// Default: info.
	LogLevel string `mapstructure:"log_level"`

	// ProgressInterval is the minimum spacing between progress log lines.
	// Default: 500ms.
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// DefaultConfig returns the default run configuration.
//
// The defaults are deliberately conservative: dry run, quarantine mode, and
// a size ceiling that keeps pathological files (disk images, VM volumes) out
// of the hashing pipeline unless explicitly asked for.
func DefaultConfig() Config {
	return Config{
		MinSize:          0,
		MaxSize:          1_000_000_000_000, // 1 TB
		Workers:          4,
		Mode:             types.ModeQuarantine,
		Apply:            false,
		Confirm:          false,
		CacheEnabled:     false,
		LogLevel:         "info",
		ProgressInterval: 500 * time.Millisecond,
	}
}

// Validate checks if the configuration has valid values.
func (c Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("invalid mode: %q (want report, quarantine, or delete)", c.Mode)
	}
	if c.Workers < 1 || c.Workers > 128 {
		return fmt.Errorf("workers must be between 1 and 128 (got %d)", c.Workers)
	}
	if c.MinSize < 0 {
		return fmt.Errorf("min_size cannot be negative (got %d)", c.MinSize)
	}
	if c.MaxSize < c.MinSize {
		return fmt.Errorf("max_size (%d) must be >= min_size (%d)", c.MaxSize, c.MinSize)
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress_interval must be positive (got %v)", c.ProgressInterval)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Root: %s, Mode: %s, Apply: %t, Confirm: %t, Workers: %d, "+
			"Size: [%d, %d], Excludes: %d paths/%d globs/%d exts, Cache: %t, Interactive: %t}",
		c.Root, c.Mode, c.Apply, c.Confirm, c.Workers,
		c.MinSize, c.MaxSize,
		len(c.ExcludePaths), len(c.ExcludeGlobs), len(c.SkipExtensions),
		c.CacheEnabled, c.Interactive,
	)
}

// ResolvedLogDir returns the log directory, defaulting under the root.
func (c Config) ResolvedLogDir() string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return filepath.Join(c.Root, LogDirName)
}

// QuarantineDir returns the quarantine root for this run.
func (c Config) QuarantineDir() string {
	return filepath.Join(c.Root, QuarantineDirName)
}

// NormalizedSkipExtensions returns the skip list lowercased with leading dots.
func (c Config) NormalizedSkipExtensions() []string {
	out := make([]string, 0, len(c.SkipExtensions))
	for _, ext := range c.SkipExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Load builds a Config from defaults, an optional YAML config file, and
// DUPECULL_* environment variables. When file is empty the usual locations
// are searched (working directory, then $HOME/.config/dupecull); a missing
// file is not an error in that case. CLI flags override the result in the
// command layer.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetConfigName("dupecull")
	v.SetConfigType("yaml")

	defaults := DefaultConfig()
	v.SetDefault("min_size", defaults.MinSize)
	v.SetDefault("max_size", defaults.MaxSize)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("mode", string(defaults.Mode))
	v.SetDefault("cache", defaults.CacheEnabled)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("progress_interval", defaults.ProgressInterval)

	v.SetEnvPrefix("DUPECULL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/dupecull")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
