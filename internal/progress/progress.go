// Package progress emits throttled progress log lines for long phases.
package progress

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Emitter rate-limits progress logging so tight loops over large trees do not
// flood the log. Emission is best-effort: lines outside the rate budget are
// dropped, not queued.
type Emitter struct {
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewEmitter returns an Emitter that logs at most one line per interval.
func NewEmitter(interval time.Duration, log zerolog.Logger) *Emitter {
	return &Emitter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     log,
	}
}

// Scanned reports traversal progress.
func (e *Emitter) Scanned(files int) {
	if e == nil || !e.limiter.Allow() {
		return
	}
	e.log.Info().Int("files", files).Msg("scanning")
}

// Hashed reports hashing progress for the named stage ("partial" or "full").
func (e *Emitter) Hashed(stage string, done, total int) {
	if e == nil || !e.limiter.Allow() {
		return
	}
	e.log.Info().
		Str("stage", stage).
		Int("done", done).
		Int("total", total).
		Msg("hashing")
}
