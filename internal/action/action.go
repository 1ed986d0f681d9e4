// Package action turns confirmed duplicate groups into per-file outcomes.
// The dispatcher never decides what to keep; it asks the decision engine,
// applies the configured mode behind the safety gates, and emits one
// ActionRecord per non-keeper file.
package action

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"dupecull/internal/decide"
	"dupecull/internal/types"
)

// Mover relocates a file into quarantine and returns the destination.
type Mover interface {
	Move(original string) (string, error)
}

// Dispatcher processes duplicate groups sequentially so every failure is
// attributable to a single file. Without Apply it records intended actions
// and touches nothing.
type Dispatcher struct {
	fs      afero.Fs
	engine  *decide.Engine
	store   Mover
	mode    types.Mode
	apply   bool
	confirm bool
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher. store is required only when mode is
// quarantine and apply is set; it is unused otherwise.
func NewDispatcher(fs afero.Fs, engine *decide.Engine, store Mover, mode types.Mode, apply, confirm bool, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		fs:      fs,
		engine:  engine,
		store:   store,
		mode:    mode,
		apply:   apply,
		confirm: confirm,
		log:     log,
	}
}

// Process dispatches every group and returns the action records in group
// order. decisions may be nil; entries in it skip a group or override its
// keeper. Mutation failures are recorded on the affected record and the
// batch continues; only context cancellation stops processing early,
// returning the records produced so far alongside the context error.
func (d *Dispatcher) Process(ctx context.Context, groups []types.DuplicateGroup, decisions map[string]types.ReviewDecision) ([]types.ActionRecord, error) {
	var records []types.ActionRecord

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		decision, reviewed := decisions[group.Hash]
		if reviewed && decision.Skip {
			d.log.Debug().Str("hash", group.Hash).Msg("group skipped by review")
			continue
		}

		keeper := d.engine.Choose(group.Files)
		overridden := false
		if reviewed && decision.KeeperPath != "" {
			for _, file := range group.Files {
				if file.Path == decision.KeeperPath {
					keeper = file
					overridden = true
					break
				}
			}
		}

		for _, file := range group.Files {
			if file.Path == keeper.Path {
				continue
			}
			reason := d.engine.Reason(keeper, file)
			if overridden {
				reason = "selected in review"
			}
			records = append(records, d.dispatchOne(group.Hash, keeper, file, reason))
		}
	}
	return records, nil
}

// dispatchOne applies the configured mode to a single non-keeper file.
// A failed mutation leaves the disposition at dry-run with the error set.
func (d *Dispatcher) dispatchOne(hash string, keeper, file *types.FileRecord, reason string) types.ActionRecord {
	disposition := types.DispositionDryRun
	errMsg := ""

	if d.apply {
		switch d.mode {
		case types.ModeDelete:
			if d.confirm {
				if err := d.fs.Remove(file.Path); err != nil {
					errMsg = err.Error()
					d.log.Error().Err(err).Str("path", file.Path).Msg("delete failed")
				} else {
					disposition = types.DispositionDelete
				}
			} else {
				errMsg = "confirmation required"
				d.log.Warn().Str("path", file.Path).Msg("delete mode requires confirmation")
			}

		case types.ModeQuarantine:
			if _, err := d.store.Move(file.Path); err != nil {
				errMsg = err.Error()
				d.log.Error().Err(err).Str("path", file.Path).Msg("quarantine move failed")
			} else {
				disposition = types.DispositionMove
			}

		case types.ModeReport:
			disposition = types.DispositionReportOnly
		}
	}

	d.log.Debug().
		Str("kept", keeper.Path).
		Str("removed", file.Path).
		Str("disposition", string(disposition)).
		Str("reason", reason).
		Msg("dispatched")

	return types.ActionRecord{
		Hash:         hash,
		Size:         file.Size,
		KeptPath:     keeper.Path,
		RemovedPath:  file.Path,
		Reason:       reason,
		KeptCTime:    keeper.CTime,
		KeptMTime:    keeper.MTime,
		RemovedCTime: file.CTime,
		RemovedMTime: file.MTime,
		Disposition:  disposition,
		Error:        errMsg,
		Timestamp:    time.Now(),
	}
}
