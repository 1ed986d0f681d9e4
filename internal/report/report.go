// Package report collects action records for a run and writes them out as
// CSV, JSON, and a human-readable summary. File names carry a timestamp so
// repeated runs against the same tree never clobber earlier reports.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/h2non/filetype"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"dupecull/internal/types"
)

// headerSniffLen is how many leading bytes content classification needs.
const headerSniffLen = 261

// Reporter accumulates records and classifies each duplicate's content kind
// by sniffing the kept copy, which is guaranteed to still exist.
type Reporter struct {
	fs      afero.Fs
	dir     string
	runID   string
	log     zerolog.Logger
	actions []types.ActionRecord
	kinds   map[string]int
}

// Paths lists the report files one run produced.
type Paths struct {
	CSV     string
	JSON    string
	Summary string
}

// New creates a Reporter writing into dir, creating it if needed.
func New(fs afero.Fs, dir, runID string, log zerolog.Logger) (*Reporter, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &Reporter{
		fs:    fs,
		dir:   dir,
		runID: runID,
		log:   log,
		kinds: make(map[string]int),
	}, nil
}

// Add records one dispatched action.
func (r *Reporter) Add(rec types.ActionRecord) {
	r.actions = append(r.actions, rec)
	r.kinds[r.classify(rec.KeptPath)]++
}

// Actions returns everything recorded so far, in dispatch order.
func (r *Reporter) Actions() []types.ActionRecord {
	return r.actions
}

// classify sniffs a file's leading bytes and returns its broad content kind
// (image, video, audio, archive, ...). Unknown or unreadable content counts
// as "other".
func (r *Reporter) classify(path string) string {
	f, err := r.fs.Open(path)
	if err != nil {
		return "other"
	}
	defer f.Close()

	head := make([]byte, headerSniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "other"
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return "other"
	}
	return kind.MIME.Type
}

// WriteAll writes the CSV, JSON, and summary reports, named with now's
// timestamp. Safe to call with no recorded actions; empty reports are
// still written so a run always leaves a trace.
func (r *Reporter) WriteAll(now time.Time) (Paths, error) {
	stamp := now.Format("20060102_150405")
	paths := Paths{
		CSV:     filepath.Join(r.dir, fmt.Sprintf("duplicate_report_%s.csv", stamp)),
		JSON:    filepath.Join(r.dir, fmt.Sprintf("duplicate_report_%s.json", stamp)),
		Summary: filepath.Join(r.dir, fmt.Sprintf("summary_%s.txt", stamp)),
	}

	if err := r.writeCSV(paths.CSV); err != nil {
		return Paths{}, err
	}
	if err := r.writeJSON(paths.JSON); err != nil {
		return Paths{}, err
	}
	if err := r.writeSummary(paths.Summary, now); err != nil {
		return Paths{}, err
	}

	r.log.Info().
		Str("csv", paths.CSV).
		Str("json", paths.JSON).
		Str("summary", paths.Summary).
		Msg("reports written")
	return paths, nil
}

var csvHeader = []string{
	"hash", "size", "kept_path", "removed_path", "reason",
	"kept_ctime", "kept_mtime", "removed_ctime", "removed_mtime",
	"disposition", "error", "timestamp",
}

func (r *Reporter) writeCSV(path string) error {
	f, err := r.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write CSV report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV report: %w", err)
	}
	for _, a := range r.actions {
		row := []string{
			a.Hash,
			strconv.FormatInt(a.Size, 10),
			a.KeptPath,
			a.RemovedPath,
			a.Reason,
			a.KeptCTime.Format(time.RFC3339),
			a.KeptMTime.Format(time.RFC3339),
			a.RemovedCTime.Format(time.RFC3339),
			a.RemovedMTime.Format(time.RFC3339),
			string(a.Disposition),
			a.Error,
			a.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV report: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write CSV report: %w", err)
	}
	return nil
}

func (r *Reporter) writeJSON(path string) error {
	actions := r.actions
	if actions == nil {
		actions = []types.ActionRecord{}
	}
	data, err := json.MarshalIndent(actions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	if err := afero.WriteFile(r.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}

func (r *Reporter) writeSummary(path string, now time.Time) error {
	total := len(r.actions)
	errors := 0
	var totalSize int64
	byDisposition := make(map[types.Disposition]int)
	for _, a := range r.actions {
		if a.Error != "" {
			errors++
		}
		totalSize += a.Size
		byDisposition[a.Disposition]++
	}

	var b []byte
	add := func(format string, args ...any) {
		b = append(b, fmt.Sprintf(format, args...)...)
	}

	add("Duplicate Cleaner Summary\n")
	add("Run ID: %s\n", r.runID)
	add("Generated: %s\n", now.Format(time.RFC3339))
	add("============================================================\n\n")
	add("Total duplicates processed: %d\n", total)
	add("Errors encountered: %d\n", errors)
	add("Space that could be freed: %s\n\n", FormatSize(totalSize))

	add("Actions breakdown:\n")
	for _, d := range sortedDispositions(byDisposition) {
		add("  %s: %d\n", d, byDisposition[d])
	}

	add("\nContent kinds:\n")
	for _, k := range sortedKeys(r.kinds) {
		add("  %s: %d\n", k, r.kinds[k])
	}

	if err := afero.WriteFile(r.fs, path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func sortedDispositions(m map[types.Disposition]int) []types.Disposition {
	out := make([]types.Disposition, 0, len(m))
	for d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FormatSize renders a byte count in binary units for the summary and the
// CLI totals line.
func FormatSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.2f PB", size)
}
