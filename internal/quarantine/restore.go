package quarantine

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// RestoreResult counts the outcome of a manifest replay.
type RestoreResult struct {
	Restored int
	Errors   int
}

// ReadManifest loads the manifest stored in a quarantine directory.
func ReadManifest(fs afero.Fs, dir string) (Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}

// Restore replays a manifest's moves in reverse order, putting every
// quarantined file back. Per-file failures are logged and counted; the
// replay continues. With dryRun no file is touched.
func Restore(fs afero.Fs, m Manifest, dryRun bool, log zerolog.Logger) RestoreResult {
	var res RestoreResult
	for i := len(m.Moves) - 1; i >= 0; i-- {
		mv := m.Moves[i]
		if dryRun {
			log.Info().Str("from", mv.To).Str("to", mv.From).Msg("would restore")
			res.Restored++
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(mv.From), 0755); err != nil {
			log.Error().Err(err).Str("path", mv.From).Msg("restore failed")
			res.Errors++
			continue
		}
		if err := moveFile(fs, mv.To, mv.From); err != nil {
			log.Error().Err(err).Str("path", mv.From).Msg("restore failed")
			res.Errors++
			continue
		}
		log.Debug().Str("path", mv.From).Msg("restored")
		res.Restored++
	}
	return res
}
