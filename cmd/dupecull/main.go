package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.2.0"

var (
	cfgFile    string
	flagLogDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "dupecull",
	Short: "Find duplicate files and resolve them safely",
	Long: `dupecull scans a directory tree for files with identical content and
resolves duplicates without risking the one copy you want to keep.

Duplicates are confirmed by content hash, never by name. For each group
a keeper is chosen by folder importance and file age; the remaining
copies are reported, quarantined, or deleted depending on the mode.

Nothing is modified unless --apply is given, every run writes CSV and
JSON reports, and quarantine runs leave a manifest plus a restore
script so the whole run can be undone.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./dupecull.yaml, then ~/.config/dupecull/)")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "directory for run logs, reports, and the hash cache (default <root>/_DUPLICATE_LOGS)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// buildLogger creates the run logger: human-readable lines on stderr and,
// when fileDir is set, the same events as JSON in a timestamped log file
// there. The returned func closes the log file.
func buildLogger(level string, fileDir string) (zerolog.Logger, func(), error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	cleanup := func() {}

	var w zerolog.LevelWriter = zerolog.MultiLevelWriter(console)
	if fileDir != "" {
		if err := os.MkdirAll(fileDir, 0755); err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := filepath.Join(fileDir, "dupecull_"+time.Now().Format("20060102_150405")+".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = zerolog.MultiLevelWriter(console, f)
		cleanup = func() { _ = f.Close() }
	}

	log := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return log, cleanup, nil
}
