// Package cleaner orchestrates a cleaning run: scan, hash, optional review,
// dispatch, and the closing bookkeeping (reports, manifest, restore script).
// Components are constructed here and share one run logger and one afero
// filesystem, so the whole flow is testable in memory.
package cleaner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"dupecull/internal/action"
	"dupecull/internal/cache"
	"dupecull/internal/config"
	"dupecull/internal/decide"
	"dupecull/internal/hash"
	"dupecull/internal/progress"
	"dupecull/internal/quarantine"
	"dupecull/internal/report"
	"dupecull/internal/scan"
	"dupecull/internal/types"
)

// CacheFileName is the hash cache database inside the log directory.
const CacheFileName = "hashcache.db"

// ReviewFunc collects keeper decisions for the confirmed groups. Wired in
// by the CLI for interactive runs; nil means every suggestion is accepted.
type ReviewFunc func(groups []types.DuplicateGroup) (map[string]types.ReviewDecision, error)

// Result is what a finished (or cleanly aborted) run leaves behind. Report
// paths are empty when the run ended early with nothing to report.
type Result struct {
	RunID        string
	Stats        types.RunStats
	Reports      report.Paths
	ManifestPath string
	RestorePath  string
}

// Cleaner runs the duplicate pipeline end to end.
type Cleaner struct {
	cfg    config.Config
	fs     afero.Fs
	log    zerolog.Logger
	runID  string
	Review ReviewFunc
}

// New creates a Cleaner for one run.
func New(fs afero.Fs, cfg config.Config, log zerolog.Logger) *Cleaner {
	return &Cleaner{
		cfg:   cfg,
		fs:    fs,
		log:   log,
		runID: uuid.NewString(),
	}
}

// RunID returns the identifier stamped on this run's reports and manifest.
func (c *Cleaner) RunID() string {
	return c.runID
}

// Run executes the pipeline. Findings with no duplicates end early with
// success. A canceled context aborts between phases; moves already performed
// are still recorded in the manifest before the error is returned.
func (c *Cleaner) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: c.runID}

	if err := c.cfg.Validate(); err != nil {
		return res, fmt.Errorf("invalid configuration: %w", err)
	}

	c.log.Info().
		Str("run_id", c.runID).
		Str("root", c.cfg.Root).
		Str("mode", string(c.cfg.Mode)).
		Bool("dry_run", !c.cfg.Apply).
		Msg("starting duplicate cleaning run")

	var hashCache hash.Cache
	var cacheStore *cache.Store
	if c.cfg.CacheEnabled {
		store, err := cache.Open(filepath.Join(c.cfg.ResolvedLogDir(), CacheFileName), c.log)
		if err != nil {
			return res, err
		}
		defer store.Close()
		cacheStore = store
		hashCache = store
	}

	prog := progress.NewEmitter(c.cfg.ProgressInterval, c.log)

	// Phase 1: traversal and size bucketing.
	scanStart := time.Now()
	scanner := scan.New(c.fs, c.cfg, c.log, prog)
	sizes, err := scanner.Scan(ctx)
	if err != nil {
		return res, err
	}
	res.Stats.FilesScanned = scanner.FilesScanned
	res.Stats.FilesSkipped = scanner.FilesSkipped
	for _, files := range sizes {
		res.Stats.CandidateFiles += len(files)
	}
	res.Stats.ScanDuration = time.Since(scanStart)

	if len(sizes) == 0 {
		c.log.Info().Msg("no potential duplicates found")
		return res, nil
	}

	// Phase 2: two-tier hashing.
	hashStart := time.Now()
	pipeline := hash.NewPipeline(c.fs, c.cfg.Workers, hashCache, c.log, prog)
	groups, err := pipeline.GroupDuplicates(ctx, sizes)
	if err != nil {
		return res, err
	}
	res.Stats.HashDuration = time.Since(hashStart)
	for _, files := range sizes {
		for _, rec := range files {
			if rec.PartialHash != "" {
				res.Stats.PartialHashes++
			}
			if rec.FullHash != "" {
				res.Stats.FullHashes++
			}
		}
	}
	if cacheStore != nil {
		if st, err := cacheStore.Stats(ctx); err == nil {
			res.Stats.CacheHits = int(st.Hits)
		}
	}

	res.Stats.DuplicateGroups = len(groups)
	for _, g := range groups {
		res.Stats.DuplicateFiles += len(g.Files) - 1
		res.Stats.BytesReclaimable += g.Reclaimable()
	}

	if len(groups) == 0 {
		c.log.Info().Msg("no true duplicates found")
		return res, nil
	}

	// Optional review between grouping and dispatch.
	var decisions map[string]types.ReviewDecision
	if c.Review != nil {
		decisions, err = c.Review(groups)
		if err != nil {
			return res, err
		}
	}

	// Quarantine storage only exists for an applying quarantine run.
	var store *quarantine.Store
	var mover action.Mover
	if c.cfg.Mode == types.ModeQuarantine && c.cfg.Apply {
		store = quarantine.NewStore(c.fs, c.cfg.QuarantineDir(), c.log)
		if err := store.Prepare(); err != nil {
			return res, err
		}
		mover = store
	}

	// Phase 3: dispatch. On cancellation the records produced so far still
	// flow into reports and the manifest below.
	actionStart := time.Now()
	engine := decide.NewEngine(c.fs)
	dispatcher := action.NewDispatcher(c.fs, engine, mover, c.cfg.Mode, c.cfg.Apply, c.cfg.Confirm, c.log)
	records, dispatchErr := dispatcher.Process(ctx, groups, decisions)
	res.Stats.ActionDuration = time.Since(actionStart)

	reporter, err := report.New(c.fs, c.cfg.ResolvedLogDir(), c.runID, c.log)
	if err != nil {
		return res, err
	}
	for _, rec := range records {
		reporter.Add(rec)
		res.Stats.CountAction(rec.Disposition, rec.Error != "")
	}

	// The manifest is written before reports: it is what makes performed
	// moves reversible.
	if store != nil && len(store.Moves()) > 0 {
		manifestPath, err := store.WriteManifest(c.runID)
		if err != nil {
			return res, err
		}
		res.ManifestPath = manifestPath

		restorePath, err := store.WriteRestoreScript()
		if err != nil {
			return res, err
		}
		res.RestorePath = restorePath
	}

	paths, err := reporter.WriteAll(time.Now())
	if err != nil {
		return res, err
	}
	res.Reports = paths

	c.log.Info().
		Int("groups", res.Stats.DuplicateGroups).
		Int("duplicates", res.Stats.DuplicateFiles).
		Int("errors", res.Stats.Errors).
		Str("reclaimable", report.FormatSize(res.Stats.BytesReclaimable)).
		Msg("run complete")
	return res, dispatchErr
}
