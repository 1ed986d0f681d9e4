// scripts/prune-cache.go - Manual hash cache maintenance tool
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"dupecull/internal/cache"
	"dupecull/internal/cleaner"
	"dupecull/internal/config"
)

func main() {
	ctx := context.Background()

	// Default to the cache of the tree named by DUPECULL_ROOT; a full DB
	// path via DUPECULL_CACHE_PATH wins.
	path := os.Getenv("DUPECULL_CACHE_PATH")
	if path == "" {
		root := os.Getenv("DUPECULL_ROOT")
		if root == "" {
			fmt.Fprintln(os.Stderr, "Error: set DUPECULL_ROOT or DUPECULL_CACHE_PATH")
			os.Exit(1)
		}
		path = filepath.Join(root, config.LogDirName, cleaner.CacheFileName)
	}

	fmt.Printf("Opening hash cache: %s\n", path)

	store, err := cache.Open(path, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Println("Pruning entries for files that no longer exist...")

	pruned, err := store.PruneMissing(ctx, func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during prune: %v\n", err)
		os.Exit(1)
	}

	if pruned > 0 {
		if err := store.Vacuum(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: vacuum failed: %v\n", err)
		}
		fmt.Printf("✓ Pruned %d stale cache entr(ies)\n", pruned)
	} else {
		fmt.Println("✓ No stale cache entries found")
	}
}
