// Package scan walks a directory tree and buckets regular files by size.
// Only sizes holding two or more files can contain duplicates, so everything
// downstream starts from the size buckets produced here.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"dupecull/internal/config"
	"dupecull/internal/progress"
	"dupecull/internal/types"
)

// Scanner traverses a root sequentially and collects candidate files.
// Traversal never follows symlinks and only regular files are recorded.
type Scanner struct {
	fs      afero.Fs
	root    string
	filter  *Filter
	minSize int64
	maxSize int64
	log     zerolog.Logger
	prog    *progress.Emitter

	// FilesScanned counts files that passed all filters, across the run.
	FilesScanned int
	// FilesSkipped counts entries rejected by filters, size bounds, or
	// access errors.
	FilesSkipped int
}

// New creates a Scanner for cfg.Root on the given filesystem.
func New(fs afero.Fs, cfg config.Config, log zerolog.Logger, prog *progress.Emitter) *Scanner {
	return &Scanner{
		fs:      fs,
		root:    filepath.Clean(cfg.Root),
		filter:  NewFilter(cfg),
		minSize: cfg.MinSize,
		maxSize: cfg.MaxSize,
		log:     log,
		prog:    prog,
	}
}

// Scan walks the root and returns files grouped by size, keeping only sizes
// with at least two members. Bucket members are sorted by path so downstream
// phases see a deterministic order. Unreadable entries are skipped with a
// debug log line; only an unreadable root or context cancellation aborts.
func (s *Scanner) Scan(ctx context.Context) (map[int64][]*types.FileRecord, error) {
	if _, err := s.fs.Stat(s.root); err != nil {
		return nil, fmt.Errorf("scanning root %s: %w", s.root, err)
	}

	s.log.Info().Str("root", s.root).Msg("starting scan")

	sizes := make(map[int64][]*types.FileRecord)
	err := afero.Walk(s.fs, s.root, func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Debug().Err(err).Str("path", path).Msg("cannot access")
			s.FilesSkipped++
			return nil
		}

		if info.IsDir() {
			if path != s.root && s.filter.ShouldSkip(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			s.FilesSkipped++
			return nil
		}
		if s.filter.ShouldSkip(path) {
			s.FilesSkipped++
			return nil
		}
		size := info.Size()
		if size < s.minSize || size > s.maxSize {
			s.FilesSkipped++
			return nil
		}

		ctime, mtime := fileTimes(info)
		sizes[size] = append(sizes[size], &types.FileRecord{
			Path:  path,
			Size:  size,
			CTime: ctime,
			MTime: mtime,
		})
		s.FilesScanned++
		s.prog.Scanned(s.FilesScanned)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning root %s: %w", s.root, err)
	}

	candidates := 0
	for size, files := range sizes {
		if len(files) < 2 {
			delete(sizes, size)
			continue
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		candidates += len(files)
	}

	s.log.Info().
		Int("scanned", s.FilesScanned).
		Int("candidates", candidates).
		Int("size_buckets", len(sizes)).
		Msg("scan complete")
	return sizes, nil
}
