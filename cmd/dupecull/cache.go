package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dupecull/internal/cache"
	"dupecull/internal/cleaner"
	"dupecull/internal/config"
	"dupecull/internal/report"
)

var cacheRoot string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or maintain the persistent hash cache",
	Long: `The hash cache stores full content hashes keyed by path, size, and
modification time, so repeat scans with --cache skip rereading
unchanged files. It lives in the log directory as ` + cleaner.CacheFileName + `.

Point at it with --root (the scanned tree) or --log-dir.`,
}

// cacheDBPath resolves the cache location from --root/--log-dir.
func cacheDBPath() string {
	if flagLogDir != "" {
		return filepath.Join(flagLogDir, cleaner.CacheFileName)
	}
	if cacheRoot != "" {
		return filepath.Join(cacheRoot, config.LogDirName, cleaner.CacheFileName)
	}
	fmt.Fprintf(os.Stderr, "Error: either --root or --log-dir is required\n")
	os.Exit(1)
	return ""
}

func openCache() *cache.Store {
	log, _, err := buildLogger("warn", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	store, err := cache.Open(cacheDBPath(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return store
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show hash cache size and contents",
	Run: func(cmd *cobra.Command, args []string) {
		store := openCache()
		defer store.Close()

		st, err := store.Stats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Hash Cache ==="))
		fmt.Printf("  Location:     %s\n", cacheDBPath())
		fmt.Printf("  Entries:      %d\n", st.Entries)
		fmt.Printf("  Bytes hashed: %s\n", report.FormatSize(st.CachedBytes))
		fmt.Println()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry from the hash cache",
	Run: func(cmd *cobra.Command, args []string) {
		store := openCache()
		defer store.Close()

		if err := store.Clear(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Hash cache cleared\n", green("✓"))
	},
}

var cacheVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Compact the hash cache database",
	Run: func(cmd *cobra.Command, args []string) {
		store := openCache()
		defer store.Close()

		if err := store.Vacuum(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Hash cache compacted\n", green("✓"))
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop cache entries for files that no longer exist",
	Run: func(cmd *cobra.Command, args []string) {
		store := openCache()
		defer store.Close()

		pruned, err := store.PruneMissing(context.Background(), func(p string) bool {
			_, err := os.Stat(p)
			return err == nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		if pruned > 0 {
			fmt.Printf("%s Pruned %d stale cache entries\n", green("✓"), pruned)
		} else {
			fmt.Printf("%s No stale cache entries found\n", green("✓"))
		}
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheVacuumCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.PersistentFlags().StringVar(&cacheRoot, "root", "", "scanned tree whose cache to use")
}
