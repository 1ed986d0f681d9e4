package scan

import (
	"path/filepath"
	"strings"

	"dupecull/internal/config"
)

// Filter decides which paths the scanner should skip. One filter instance
// serves both directory pruning and per-file checks, so an excluded name
// prunes a whole subtree when it names a directory.
type Filter struct {
	excludePaths []string
	excludeGlobs []string
	skipExts     map[string]struct{}
}

// NewFilter builds a Filter from the run configuration. Exclude paths are
// normalized to absolute form; globs and extensions are lowercased. The
// tool's own quarantine and log directories are always skipped so a rescan
// never sees its own artifacts.
func NewFilter(cfg config.Config) *Filter {
	f := &Filter{
		excludePaths: make([]string, 0, len(cfg.ExcludePaths)),
		excludeGlobs: make([]string, 0, len(cfg.ExcludeGlobs)),
		skipExts:     make(map[string]struct{}),
	}
	for _, p := range cfg.ExcludePaths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		f.excludePaths = append(f.excludePaths, filepath.Clean(p))
	}
	for _, g := range cfg.ExcludeGlobs {
		f.excludeGlobs = append(f.excludeGlobs, strings.ToLower(filepath.ToSlash(g)))
	}
	for _, ext := range cfg.NormalizedSkipExtensions() {
		f.skipExts[ext] = struct{}{}
	}
	return f
}

// ShouldSkip reports whether path is excluded from the scan.
func (f *Filter) ShouldSkip(path string) bool {
	base := filepath.Base(path)
	if base == config.QuarantineDirName || base == config.LogDirName {
		return true
	}

	abs := path
	if a, err := filepath.Abs(path); err == nil {
		abs = a
	}
	abs = filepath.Clean(abs)
	for _, excluded := range f.excludePaths {
		if abs == excluded || strings.HasPrefix(abs, excluded+string(filepath.Separator)) {
			return true
		}
	}

	lower := strings.ToLower(filepath.ToSlash(path))
	for _, pattern := range f.excludeGlobs {
		if matchTrailing(pattern, lower) {
			return true
		}
	}

	if _, ok := f.skipExts[strings.ToLower(filepath.Ext(path))]; ok {
		return true
	}
	return false
}

// matchTrailing matches a slash-separated glob against the trailing
// components of path, so "*.tmp" matches any .tmp entry anywhere and
// "cache/*" matches entries directly inside any cache directory.
func matchTrailing(pattern, path string) bool {
	pparts := strings.Split(pattern, "/")
	parts := strings.Split(path, "/")
	if len(pparts) == 0 || len(pparts) > len(parts) {
		return false
	}
	tail := parts[len(parts)-len(pparts):]
	for i, pp := range pparts {
		ok, err := filepath.Match(pp, tail[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}
