// Package decide picks which file in a duplicate group to keep. The
// heuristic scores the folder holding each copy, preferring project
// directories and user content areas over temp and cache locations, then
// breaks ties by age and path length.
package decide

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"dupecull/internal/types"
)

// Files whose presence marks a directory as part of a project checkout.
// Matched against exact sibling file names, lowercased.
var projectIndicators = map[string]struct{}{
	"package.json": {}, "package-lock.json": {}, "yarn.lock": {}, "pom.xml": {},
	"build.gradle": {}, "settings.gradle": {}, "angular.json": {}, "tsconfig.json": {},
	"pyproject.toml": {}, "setup.py": {}, "requirements.txt": {}, "pipfile": {},
	"cargo.toml": {}, "go.mod": {}, "composer.json": {}, ".gitignore": {}, ".git": {},
	"makefile": {}, "cmakelists.txt": {}, ".sln": {}, ".csproj": {}, ".vbproj": {},
}

// Directory names that mark project structure when present as siblings.
var projectFolders = map[string]struct{}{
	"src": {}, "source": {}, "lib": {}, "app": {}, "components": {}, "modules": {},
	"node_modules": {}, ".git": {}, ".svn": {}, "dist": {}, "build": {}, "target": {},
	"bin": {}, "obj": {}, "__pycache__": {}, "venv": {}, ".env": {},
}

// Substrings of the parent path that mark user content worth keeping.
var userContentKeywords = []string{
	"documents", "photos", "pictures", "videos", "music", "downloads",
	"desktop", "onedrive", "dropbox", "google drive",
}

// Substrings of the parent path that mark disposable locations.
var ignoreKeywords = []string{
	"temp", "tmp", "cache", "recycle", "trash", "$recycle.bin",
}

const (
	indicatorWeight       = 50
	structureWeight       = 30
	manySiblingsBonus     = 20
	manySiblingsThreshold = 10
	userContentWeight     = 40
	junkPenalty           = 100
	depthPenalty          = 2
)

// Engine scores folders and selects keepers. Scores are memoized on the
// FileRecord, so each file's directory is listed at most once per run.
type Engine struct {
	fs afero.Fs
}

// NewEngine returns an Engine reading sibling listings from fs.
func NewEngine(fs afero.Fs) *Engine {
	return &Engine{fs: fs}
}

// FolderScore rates how important the directory containing path looks.
// Higher means more worth keeping.
func (e *Engine) FolderScore(path string) int {
	score := 0
	parent := filepath.Dir(path)
	parentLower := strings.ToLower(parent)

	// Sibling-based signals are skipped when the directory cannot be read.
	if siblings, err := afero.ReadDir(e.fs, parent); err == nil {
		fileNames := make(map[string]struct{})
		dirNames := make(map[string]struct{})
		for _, s := range siblings {
			name := strings.ToLower(s.Name())
			if s.IsDir() {
				dirNames[name] = struct{}{}
			} else {
				fileNames[name] = struct{}{}
			}
		}

		for indicator := range projectIndicators {
			if _, ok := fileNames[indicator]; ok {
				score += indicatorWeight
			}
		}
		for folder := range projectFolders {
			if _, ok := dirNames[folder]; ok {
				score += structureWeight
			}
		}
		if len(fileNames) > manySiblingsThreshold {
			score += manySiblingsBonus
		}
	}

	for _, keyword := range userContentKeywords {
		if strings.Contains(parentLower, keyword) {
			score += userContentWeight
		}
	}
	for _, keyword := range ignoreKeywords {
		if strings.Contains(parentLower, keyword) {
			score -= junkPenalty
		}
	}

	score -= pathDepth(path) * depthPenalty
	return score
}

// pathDepth counts path components including the root element, so
// "/a/b/c.txt" has depth 4.
func pathDepth(path string) int {
	return len(strings.Split(filepath.ToSlash(filepath.Clean(path)), "/"))
}

// scoreOf memoizes the folder score on the record.
func (e *Engine) scoreOf(rec *types.FileRecord) int {
	if rec.FolderScore == nil {
		s := e.FolderScore(rec.Path)
		rec.FolderScore = &s
	}
	return *rec.FolderScore
}

// Choose returns the group member to keep: highest folder score, then
// earliest timestamp, then shortest path. The input slice is not reordered.
func (e *Engine) Choose(files []*types.FileRecord) *types.FileRecord {
	if len(files) == 1 {
		return files[0]
	}

	for _, f := range files {
		e.scoreOf(f)
	}

	ranked := make([]*types.FileRecord, len(files))
	copy(ranked, files)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if sa, sb := *a.FolderScore, *b.FolderScore; sa != sb {
			return sa > sb
		}
		if ta, tb := a.EarliestTime(), b.EarliestTime(); !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return len(a.Path) < len(b.Path)
	})
	return ranked[0]
}

// Reason explains why keeper won over removed, for the action log.
func (e *Engine) Reason(keeper, removed *types.FileRecord) string {
	var reasons []string

	if ks, rs := e.scoreOf(keeper), e.scoreOf(removed); ks > rs {
		reasons = append(reasons, fmt.Sprintf("better folder score (%d vs %d)", ks, rs))
	}
	if keeper.EarliestTime().Before(removed.EarliestTime()) {
		reasons = append(reasons, "older file")
	}
	if len(keeper.Path) < len(removed.Path) {
		reasons = append(reasons, "shorter path")
	}

	if len(reasons) == 0 {
		return "default choice"
	}
	return strings.Join(reasons, "; ")
}
