package types

import (
	"fmt"
	"time"
)

// FileRecord describes one regular file discovered during a scan.
//
// Records are created by the scanner and then flow through the hashing
// pipeline, which fills in the hash fields. Each record is owned by exactly
// one in-flight hashing task at a time, so the fields need no locking: the
// scanner writes everything else before hashing starts, and the selector
// writes FolderScore exactly once afterwards.
type FileRecord struct {
	// Path is the absolute path of the file; unique key within a run.
	Path string

	// Size is the exact byte count reported at scan time.
	Size int64

	// CTime and MTime are the platform-reported change/creation and
	// modification times. They may be equal, and on some platforms CTime
	// is inode-change time rather than creation time.
	CTime time.Time
	MTime time.Time

	// PartialHash is the hex digest of the sampled-chunk fingerprint.
	// Empty until the partial pass has run for this record.
	PartialHash string

	// FullHash is the hex digest of the full file contents.
	// Empty until the full pass has run for this record.
	FullHash string

	// FolderScore is the memoized folder importance score. Nil until the
	// keeper selector computes it; never recomputed afterwards.
	FolderScore *int
}

// EarliestTime returns the earlier of the record's two timestamps.
// Used by keeper selection to favor originals over later copies.
func (f *FileRecord) EarliestTime() time.Time {
	if f.CTime.Before(f.MTime) {
		return f.CTime
	}
	return f.MTime
}

// DuplicateGroup is a set of two or more files sharing a full content hash.
type DuplicateGroup struct {
	Hash  string
	Files []*FileRecord
}

// Size returns the byte size shared by every member of the group.
func (g *DuplicateGroup) Size() int64 {
	if len(g.Files) == 0 {
		return 0
	}
	return g.Files[0].Size
}

// Reclaimable returns the bytes freed if every non-keeper member is removed.
func (g *DuplicateGroup) Reclaimable() int64 {
	if len(g.Files) < 2 {
		return 0
	}
	return int64(len(g.Files)-1) * g.Size()
}

// Mode selects what happens to the non-keeper members of a duplicate group.
type Mode string

const (
	// ModeReport records findings without touching the filesystem.
	ModeReport Mode = "report"
	// ModeQuarantine relocates duplicates into the quarantine tree.
	ModeQuarantine Mode = "quarantine"
	// ModeDelete permanently removes duplicates. Requires the confirm gate.
	ModeDelete Mode = "delete"
)

// IsValid checks if the mode value is one of the recognized modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeReport, ModeQuarantine, ModeDelete:
		return true
	}
	return false
}

// Disposition is the action actually taken for one non-keeper file.
type Disposition string

const (
	// DispositionDryRun means no mutation occurred because apply was off
	// (or the delete confirmation gate blocked the mutation).
	DispositionDryRun Disposition = "dry-run"
	// DispositionReportOnly means report mode recorded the duplicate.
	DispositionReportOnly Disposition = "report-only"
	// DispositionMove means the file was relocated into quarantine.
	DispositionMove Disposition = "move"
	// DispositionDelete means the file was permanently removed.
	DispositionDelete Disposition = "delete"
)

// IsValid checks if the disposition value is one of the recognized set.
func (d Disposition) IsValid() bool {
	switch d {
	case DispositionDryRun, DispositionReportOnly, DispositionMove, DispositionDelete:
		return true
	}
	return false
}

// ActionRecord captures the decision and outcome for one non-keeper file in
// a duplicate group. Immutable once created; the authoritative unit consumed
// by the reporting layer.
type ActionRecord struct {
	Hash         string      `json:"hash"`
	Size         int64       `json:"size"`
	KeptPath     string      `json:"kept_path"`
	RemovedPath  string      `json:"removed_path"`
	Reason       string      `json:"reason"`
	KeptCTime    time.Time   `json:"kept_ctime"`
	KeptMTime    time.Time   `json:"kept_mtime"`
	RemovedCTime time.Time   `json:"removed_ctime"`
	RemovedMTime time.Time   `json:"removed_mtime"`
	Disposition  Disposition `json:"disposition"`
	Error        string      `json:"error,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Validate checks if the action record has valid field values.
func (a *ActionRecord) Validate() error {
	if a.Hash == "" {
		return fmt.Errorf("hash is required")
	}
	if a.Size < 0 {
		return fmt.Errorf("size cannot be negative (got %d)", a.Size)
	}
	if a.KeptPath == "" {
		return fmt.Errorf("kept_path is required")
	}
	if a.RemovedPath == "" {
		return fmt.Errorf("removed_path is required")
	}
	if a.KeptPath == a.RemovedPath {
		return fmt.Errorf("kept_path and removed_path must differ (got %q)", a.KeptPath)
	}
	if !a.Disposition.IsValid() {
		return fmt.Errorf("invalid disposition: %s", a.Disposition)
	}
	return nil
}

// QuarantineMove records one successful relocation into the quarantine tree.
// The ordered sequence of moves is the sole input needed to reverse a run.
type QuarantineMove struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// ReviewDecision overrides dispatch for one duplicate group. Produced by the
// interactive review phase, keyed by group hash.
type ReviewDecision struct {
	// Skip leaves the whole group untouched.
	Skip bool

	// KeeperPath forces a specific member as keeper. Empty accepts the
	// engine's suggestion.
	KeeperPath string
}

// RunStats aggregates counters for one cleaning run. Filled in by the
// orchestrator as each phase completes and rendered by the CLI summary.
type RunStats struct {
	FilesScanned   int `json:"files_scanned"`
	FilesSkipped   int `json:"files_skipped"`
	CandidateFiles int `json:"candidate_files"`

	PartialHashes int `json:"partial_hashes"`
	FullHashes    int `json:"full_hashes"`
	CacheHits     int `json:"cache_hits"`

	DuplicateGroups  int   `json:"duplicate_groups"`
	DuplicateFiles   int   `json:"duplicate_files"`
	BytesReclaimable int64 `json:"bytes_reclaimable"`

	ActionsByDisposition map[Disposition]int `json:"actions_by_disposition"`
	Errors               int                 `json:"errors"`

	ScanDuration   time.Duration `json:"scan_duration"`
	HashDuration   time.Duration `json:"hash_duration"`
	ActionDuration time.Duration `json:"action_duration"`
}

// CountAction tallies one dispatched action into the stats.
func (s *RunStats) CountAction(d Disposition, hadError bool) {
	if s.ActionsByDisposition == nil {
		s.ActionsByDisposition = make(map[Disposition]int)
	}
	s.ActionsByDisposition[d]++
	if hadError {
		s.Errors++
	}
}
