// Package cache persists full content hashes between runs so unchanged
// files are not re-read. An entry is keyed by path and validated against
// size and mtime; any mismatch is a miss.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store is a SQLite-backed hash cache. Safe for concurrent use; lookups and
// stores are best-effort and never surface errors to the hashing pipeline.
type Store struct {
	db  *sql.DB
	log zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats summarizes cache contents and this session's hit rate.
type Stats struct {
	Entries     int64
	CachedBytes int64
	Hits        int64
	Misses      int64
}

// Open opens or creates the cache database at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	// WAL keeps concurrent worker stores from serializing on the file lock.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Lookup returns the cached full hash for path when size and mtime still
// match the stored entry.
func (s *Store) Lookup(path string, size int64, mtime time.Time) (string, bool) {
	var hash string
	err := s.db.QueryRow(
		`SELECT full_hash FROM hashes WHERE path = ? AND size = ? AND mtime_ns = ?`,
		path, size, mtime.UnixNano(),
	).Scan(&hash)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Debug().Err(err).Str("path", path).Msg("cache lookup failed")
		}
		s.misses.Add(1)
		return "", false
	}
	s.hits.Add(1)
	return hash, true
}

// Store records the full hash for path, replacing any stale entry.
func (s *Store) Store(path string, size int64, mtime time.Time, fullHash string) {
	_, err := s.db.Exec(
		`INSERT INTO hashes (path, size, mtime_ns, full_hash, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(path) DO UPDATE SET
		   size = excluded.size,
		   mtime_ns = excluded.mtime_ns,
		   full_hash = excluded.full_hash,
		   updated_at = excluded.updated_at`,
		path, size, mtime.UnixNano(), fullHash,
	)
	if err != nil {
		s.log.Debug().Err(err).Str("path", path).Msg("cache store failed")
	}
}

// Stats reports entry counts plus this session's hits and misses.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM hashes`,
	).Scan(&st.Entries, &st.CachedBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	st.Hits = s.hits.Load()
	st.Misses = s.misses.Load()
	return st, nil
}

// Clear removes every cached entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM hashes`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// PruneMissing removes entries whose file no longer exists, as judged by
// exists. Returns the number of entries removed. The cache stays usable if
// pruning stops partway.
func (s *Store) PruneMissing(ctx context.Context, exists func(path string) bool) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM hashes`)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		if !exists(path) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	rows.Close()

	pruned := 0
	for _, path := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM hashes WHERE path = ?`, path); err != nil {
			return pruned, fmt.Errorf("failed to prune %s: %w", path, err)
		}
		pruned++
	}
	if pruned > 0 {
		s.log.Info().Int("pruned", pruned).Msg("removed stale cache entries")
	}
	return pruned, nil
}

// Vacuum reclaims file space after large clears.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("failed to vacuum cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
