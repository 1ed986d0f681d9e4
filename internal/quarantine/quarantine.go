// Package quarantine relocates duplicate files into a holding area that
// mirrors their original layout, and records every move so the run can be
// undone: a YAML manifest drives programmatic restore, and a generated
// shell script covers restore without the tool.
package quarantine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"dupecull/internal/types"
)

// ManifestName is the manifest file written at the quarantine root.
const ManifestName = "manifest.yaml"

// RestoreScriptName is the standalone restore script at the quarantine root.
const RestoreScriptName = "restore.sh"

// Manifest records one run's moves in order. Restore replays it backwards.
type Manifest struct {
	RunID     string                 `yaml:"run_id"`
	CreatedAt string                 `yaml:"created_at"`
	Moves     []types.QuarantineMove `yaml:"moves"`
}

// Store moves files under a quarantine root and keeps the ordered move log.
// The root is exclusively owned by one run for its duration.
type Store struct {
	fs    afero.Fs
	root  string
	log   zerolog.Logger
	moves []types.QuarantineMove
}

// NewStore creates a Store rooted at dir.
func NewStore(fs afero.Fs, dir string, log zerolog.Logger) *Store {
	return &Store{fs: fs, root: filepath.Clean(dir), log: log}
}

// Prepare creates the quarantine root.
func (s *Store) Prepare() error {
	if err := s.fs.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create quarantine directory: %w", err)
	}
	s.log.Info().Str("dir", s.root).Msg("quarantine directory ready")
	return nil
}

// DestFor maps an original path to its quarantine location, preserving the
// path relative to the volume root. Paths that cannot be made relative are
// flattened with ":" rewritten, so Windows drive letters stay legible.
func (s *Store) DestFor(original string) string {
	if filepath.IsAbs(original) {
		rel := strings.TrimPrefix(original, filepath.VolumeName(original))
		rel = strings.TrimPrefix(rel, string(filepath.Separator))
		return filepath.Join(s.root, rel)
	}
	return filepath.Join(s.root, strings.ReplaceAll(original, ":", "_drive"))
}

// Move relocates original into quarantine and logs the move. Returns the
// destination path.
func (s *Store) Move(original string) (string, error) {
	dest := s.DestFor(original)
	if err := s.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create quarantine path for %s: %w", original, err)
	}
	if err := moveFile(s.fs, original, dest); err != nil {
		return "", err
	}
	s.moves = append(s.moves, types.QuarantineMove{From: original, To: dest})
	s.log.Debug().Str("from", original).Str("to", dest).Msg("moved to quarantine")
	return dest, nil
}

// Moves returns the moves performed so far, in order.
func (s *Store) Moves() []types.QuarantineMove {
	return s.moves
}

// WriteManifest writes the run manifest at the quarantine root and returns
// its path.
func (s *Store) WriteManifest(runID string) (string, error) {
	m := Manifest{
		RunID:     runID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Moves:     s.moves,
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(s.root, ManifestName)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	s.log.Info().Str("path", path).Int("moves", len(s.moves)).Msg("manifest written")
	return path, nil
}

// WriteRestoreScript writes a plain shell script that undoes every move,
// usable on machines without this tool installed.
func (s *Store) WriteRestoreScript() (string, error) {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("# Restore script for quarantined duplicates\n")
	b.WriteString("# Generated: " + time.Now().UTC().Format(time.RFC3339) + "\n\n")
	b.WriteString("echo 'Restoring quarantined files...'\n")
	b.WriteString("errors=0\n\n")

	for _, mv := range s.moves {
		b.WriteString("# Restore: " + mv.From + "\n")
		b.WriteString("mkdir -p " + shQuote(filepath.Dir(mv.From)) + " && ")
		b.WriteString("mv -f " + shQuote(mv.To) + " " + shQuote(mv.From))
		b.WriteString(" || { echo 'ERROR restoring " + strings.ReplaceAll(mv.From, "'", "'\\''") + "'; errors=$((errors+1)); }\n\n")
	}

	b.WriteString("echo \"Restore complete. Errors: $errors\"\n")

	path := filepath.Join(s.root, RestoreScriptName)
	if err := afero.WriteFile(s.fs, path, []byte(b.String()), 0o755); err != nil {
		return "", fmt.Errorf("failed to write restore script: %w", err)
	}
	s.log.Info().Str("path", path).Msg("restore script written")
	return path, nil
}

// shQuote single-quotes a path for the restore script.
func shQuote(p string) string {
	return "'" + strings.ReplaceAll(p, "'", "'\\''") + "'"
}

// moveFile renames src to dst, falling back to copy-and-delete when the
// rename crosses filesystems. The fallback preserves mode and mtime.
func moveFile(fs afero.Fs, src, dst string) error {
	if err := fs.Rename(src, dst); err == nil {
		return nil
	}

	info, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}

	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		fs.Remove(dst)
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		fs.Remove(dst)
		return fmt.Errorf("failed to move %s: %w", src, err)
	}

	// Timestamps on the copy are cosmetic; ignore failures.
	_ = fs.Chtimes(dst, time.Now(), info.ModTime())

	if err := fs.Remove(src); err != nil {
		return fmt.Errorf("failed to remove %s after copy: %w", src, err)
	}
	return nil
}
