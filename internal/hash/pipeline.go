package hash

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"dupecull/internal/progress"
	"dupecull/internal/types"
)

// Cache looks up previously computed full hashes. Implementations must be
// safe for concurrent use; lookups and stores are best-effort and must never
// fail the pipeline.
type Cache interface {
	Lookup(path string, size int64, mtime time.Time) (string, bool)
	Store(path string, size int64, mtime time.Time, fullHash string)
}

// Pipeline confirms duplicates among size-bucketed candidates. Each phase
// fans out one task per file into a bounded errgroup and joins before the
// next phase starts; a task writes only its own record's hash field.
type Pipeline struct {
	fs      afero.Fs
	workers int
	cache   Cache
	log     zerolog.Logger
	prog    *progress.Emitter
}

// NewPipeline creates a hashing pipeline. cache may be nil.
func NewPipeline(fs afero.Fs, workers int, cache Cache, log zerolog.Logger, prog *progress.Emitter) *Pipeline {
	return &Pipeline{
		fs:      fs,
		workers: workers,
		cache:   cache,
		log:     log,
		prog:    prog,
	}
}

// GroupDuplicates hashes the size-bucket members and returns confirmed
// duplicate groups sorted by hash, members sorted by path. Files whose hash
// cannot be computed are dropped from consideration rather than grouped.
// Cancellation stops dispatch, lets in-flight tasks finish, and returns the
// context error.
func (p *Pipeline) GroupDuplicates(ctx context.Context, sizes map[int64][]*types.FileRecord) ([]types.DuplicateGroup, error) {
	var records []*types.FileRecord
	for _, files := range sizes {
		records = append(records, files...)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	if len(records) == 0 {
		return nil, nil
	}

	p.log.Info().
		Int("files", len(records)).
		Int("workers", p.workers).
		Msg("computing partial fingerprints")

	if err := p.runPhase(ctx, "partial", records, p.partialTask); err != nil {
		return nil, err
	}

	partialGroups := make(map[string][]*types.FileRecord)
	for _, rec := range records {
		if rec.PartialHash != "" {
			partialGroups[rec.PartialHash] = append(partialGroups[rec.PartialHash], rec)
		}
	}

	var candidates []*types.FileRecord
	for _, group := range partialGroups {
		if len(group) > 1 {
			candidates = append(candidates, group...)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })

	if len(candidates) == 0 {
		p.log.Info().Msg("no fingerprint collisions, no duplicates")
		return nil, nil
	}

	p.log.Info().Int("candidates", len(candidates)).Msg("computing full hashes")

	if err := p.runPhase(ctx, "full", candidates, p.fullTask); err != nil {
		return nil, err
	}

	byHash := make(map[string][]*types.FileRecord)
	for _, rec := range candidates {
		if rec.FullHash != "" {
			byHash[rec.FullHash] = append(byHash[rec.FullHash], rec)
		}
	}

	var groups []types.DuplicateGroup
	duplicates := 0
	for h, files := range byHash {
		if len(files) < 2 {
			continue
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		groups = append(groups, types.DuplicateGroup{Hash: h, Files: files})
		duplicates += len(files) - 1
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Hash < groups[j].Hash })

	p.log.Info().
		Int("duplicates", duplicates).
		Int("groups", len(groups)).
		Msg("duplicate confirmation complete")
	return groups, nil
}

// runPhase fans records out into a bounded errgroup and joins. The phase
// barrier is strict: no full hash starts before every partial task returned.
// Cancellation stops dispatch; tasks already running finish on their own.
func (p *Pipeline) runPhase(parent context.Context, stage string, records []*types.FileRecord, task func(*types.FileRecord) error) error {
	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(p.workers)

	total := len(records)
	var done atomic.Int64

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := task(rec); err != nil {
				return err
			}
			p.prog.Hashed(stage, int(done.Add(1)), total)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return parent.Err()
}

func (p *Pipeline) partialTask(rec *types.FileRecord) error {
	h, err := PartialFingerprint(p.fs, rec.Path, rec.Size)
	if err != nil {
		p.log.Debug().Err(err).Str("path", rec.Path).Msg("cannot fingerprint")
		return nil
	}
	rec.PartialHash = h
	return nil
}

func (p *Pipeline) fullTask(rec *types.FileRecord) error {
	if p.cache != nil {
		if h, ok := p.cache.Lookup(rec.Path, rec.Size, rec.MTime); ok {
			rec.FullHash = h
			return nil
		}
	}
	h, err := FullHash(p.fs, rec.Path)
	if err != nil {
		p.log.Debug().Err(err).Str("path", rec.Path).Msg("cannot hash")
		return nil
	}
	rec.FullHash = h
	if p.cache != nil {
		p.cache.Store(rec.Path, rec.Size, rec.MTime, h)
	}
	return nil
}
