package cleaner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"dupecull/internal/config"
	"dupecull/internal/quarantine"
	"dupecull/internal/types"
)

func testConfig(root string) config.Config {
	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.LogDir = "/logs"
	cfg.Workers = 2
	return cfg
}

func write(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func mustExist(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.True(t, ok, "expected %s to exist", path)
}

func mustNotExist(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, ok, "expected %s to be gone", path)
}

func TestRunFindsAndReportsDuplicates(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/data/docs/report.txt", "identical payload alpha")
	write(t, fs, "/data/backup/report.txt", "identical payload alpha")
	write(t, fs, "/data/pics/img.bin", strings.Repeat("x", 2048))
	write(t, fs, "/data/old/img.bin", strings.Repeat("x", 2048))
	write(t, fs, "/data/notes/unique.txt", "odd one out")

	c := New(fs, testConfig("/data"), zerolog.Nop())
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 5, res.Stats.FilesScanned)
	assert.Equal(t, 4, res.Stats.CandidateFiles)
	assert.Equal(t, 4, res.Stats.PartialHashes)
	assert.Equal(t, 4, res.Stats.FullHashes)
	assert.Equal(t, 2, res.Stats.DuplicateGroups)
	assert.Equal(t, 2, res.Stats.DuplicateFiles)
	assert.Equal(t, int64(23+2048), res.Stats.BytesReclaimable)
	assert.Equal(t, 2, res.Stats.ActionsByDisposition[types.DispositionDryRun])
	assert.Zero(t, res.Stats.Errors)

	for _, p := range []string{res.Reports.CSV, res.Reports.JSON, res.Reports.Summary} {
		require.NotEmpty(t, p)
		mustExist(t, fs, p)
	}

	// Dry run by default: nothing moved, no manifest.
	assert.Empty(t, res.ManifestPath)
	for _, p := range []string{
		"/data/docs/report.txt", "/data/backup/report.txt",
		"/data/pics/img.bin", "/data/old/img.bin", "/data/notes/unique.txt",
	} {
		mustExist(t, fs, p)
	}
}

func TestRunNoCandidatesEndsEarly(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/data/a.txt", "short")
	write(t, fs, "/data/b.txt", "rather longer text")

	c := New(fs, testConfig("/data"), zerolog.Nop())
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.FilesScanned)
	assert.Zero(t, res.Stats.CandidateFiles)
	assert.Zero(t, res.Stats.DuplicateGroups)
	assert.Empty(t, res.Reports.CSV)

	// Nothing to report means the log directory is never created.
	ok, err := afero.DirExists(fs, "/logs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunNoConfirmedDuplicatesEndsEarly(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/data/a.dat", "AAAAAAAAAA")
	write(t, fs, "/data/b.dat", "BBBBBBBBBB")

	c := New(fs, testConfig("/data"), zerolog.Nop())
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.CandidateFiles)
	assert.Equal(t, 2, res.Stats.PartialHashes)
	assert.Zero(t, res.Stats.FullHashes, "distinct fingerprints must skip full hashing")
	assert.Zero(t, res.Stats.DuplicateGroups)
	assert.Empty(t, res.Reports.CSV)
}

func TestRunQuarantineApply(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/data/docs/report.txt", "identical payload alpha")
	write(t, fs, "/data/docs/report_copy.txt", "identical payload alpha")
	// The original is older, so it wins keeper selection.
	require.NoError(t, fs.Chtimes("/data/docs/report.txt", time.Unix(1600000000, 0), time.Unix(1600000000, 0)))
	require.NoError(t, fs.Chtimes("/data/docs/report_copy.txt", time.Unix(1700000000, 0), time.Unix(1700000000, 0)))

	cfg := testConfig("/data")
	cfg.Apply = true
	c := New(fs, cfg, zerolog.Nop())
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.ActionsByDisposition[types.DispositionMove])
	mustExist(t, fs, "/data/docs/report.txt")
	mustNotExist(t, fs, "/data/docs/report_copy.txt")
	mustExist(t, fs, "/data/_DUPLICATE_QUARANTINE/data/docs/report_copy.txt")

	require.NotEmpty(t, res.ManifestPath)
	require.NotEmpty(t, res.RestorePath)
	mustExist(t, fs, res.ManifestPath)
	mustExist(t, fs, res.RestorePath)

	data, err := afero.ReadFile(fs, res.ManifestPath)
	require.NoError(t, err)
	var m quarantine.Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, res.RunID, m.RunID)
	require.Len(t, m.Moves, 1)
	assert.Equal(t, "/data/docs/report_copy.txt", m.Moves[0].From)
}

func TestRunReviewSkipsEverything(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/data/a/f.txt", "identical payload alpha")
	write(t, fs, "/data/b/f.txt", "identical payload alpha")

	cfg := testConfig("/data")
	cfg.Apply = true
	c := New(fs, cfg, zerolog.Nop())
	c.Review = func(groups []types.DuplicateGroup) (map[string]types.ReviewDecision, error) {
		decisions := make(map[string]types.ReviewDecision)
		for _, g := range groups {
			decisions[g.Hash] = types.ReviewDecision{Skip: true}
		}
		return decisions, nil
	}

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.DuplicateGroups)
	assert.Empty(t, res.Stats.ActionsByDisposition)
	assert.Empty(t, res.ManifestPath)
	mustExist(t, fs, "/data/a/f.txt")
	mustExist(t, fs, "/data/b/f.txt")

	// The run still leaves reports behind, even if every group was skipped.
	mustExist(t, fs, res.Reports.CSV)
}

func TestRunReviewOverridesKeeper(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/data/docs/report.txt", "identical payload alpha")
	write(t, fs, "/data/docs/report_copy.txt", "identical payload alpha")
	require.NoError(t, fs.Chtimes("/data/docs/report.txt", time.Unix(1600000000, 0), time.Unix(1600000000, 0)))
	require.NoError(t, fs.Chtimes("/data/docs/report_copy.txt", time.Unix(1700000000, 0), time.Unix(1700000000, 0)))

	cfg := testConfig("/data")
	cfg.Apply = true
	c := New(fs, cfg, zerolog.Nop())
	c.Review = func(groups []types.DuplicateGroup) (map[string]types.ReviewDecision, error) {
		require.Len(t, groups, 1)
		return map[string]types.ReviewDecision{
			groups[0].Hash: {KeeperPath: "/data/docs/report_copy.txt"},
		}, nil
	}

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	// The reviewed keeper survives; the engine's suggestion is quarantined.
	mustExist(t, fs, "/data/docs/report_copy.txt")
	mustNotExist(t, fs, "/data/docs/report.txt")

	data, err := afero.ReadFile(fs, res.Reports.JSON)
	require.NoError(t, err)
	var records []types.ActionRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "/data/docs/report_copy.txt", records[0].KeptPath)
	assert.Equal(t, "/data/docs/report.txt", records[0].RemovedPath)
	assert.Equal(t, "selected in review", records[0].Reason)
}

func TestRunReviewErrorAborts(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/data/a/f.txt", "identical payload alpha")
	write(t, fs, "/data/b/f.txt", "identical payload alpha")

	cfg := testConfig("/data")
	cfg.Apply = true
	c := New(fs, cfg, zerolog.Nop())
	c.Review = func([]types.DuplicateGroup) (map[string]types.ReviewDecision, error) {
		return nil, errors.New("terminal went away")
	}

	res, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal went away")

	assert.Empty(t, res.Reports.CSV)
	mustExist(t, fs, "/data/a/f.txt")
	mustExist(t, fs, "/data/b/f.txt")
}

func TestRunCanceledContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/data/a/f.txt", "identical payload alpha")
	write(t, fs, "/data/b/f.txt", "identical payload alpha")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(fs, testConfig("/data"), zerolog.Nop())
	_, err := c.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("/data")
	cfg.Workers = 0

	c := New(afero.NewMemMapFs(), cfg, zerolog.Nop())
	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunCacheWarmsAcrossRuns(t *testing.T) {
	root := t.TempDir()
	fs := afero.NewOsFs()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("identical payload alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "b.txt"), []byte("identical payload alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "c.txt"), []byte("bystander"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.LogDir = ""
	cfg.Workers = 2
	cfg.Mode = types.ModeReport
	cfg.CacheEnabled = true

	first, err := New(fs, cfg, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Stats.FilesScanned)
	assert.Equal(t, 2, first.Stats.FullHashes)
	assert.Zero(t, first.Stats.CacheHits)

	// Second run rereads nothing: both full hashes come from the cache.
	// The reports and cache DB from the first run sit inside the root but
	// under the tool's own log directory, which the scanner never enters.
	second, err := New(fs, cfg, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, second.Stats.FilesScanned)
	assert.Equal(t, 2, second.Stats.FullHashes)
	assert.Equal(t, 2, second.Stats.CacheHits)
}
