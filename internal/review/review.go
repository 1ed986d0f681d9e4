// Package review runs the optional interactive pass over duplicate groups
// before anything is dispatched. The session only produces decisions; it
// never touches the filesystem.
package review

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"dupecull/internal/decide"
	"dupecull/internal/report"
	"dupecull/internal/types"
)

// lineReader is the readline surface the session needs, kept narrow so
// tests can script the input.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// Session walks duplicate groups and collects keeper decisions.
type Session struct {
	engine *decide.Engine
	rl     lineReader
	out    io.Writer
}

// NewSession creates an interactive session on the terminal.
func NewSession(engine *decide.Engine) (*Session, error) {
	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cyan("review> "),
		InterruptPrompt: "^C",
		EOFPrompt:       "done",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Session{engine: engine, rl: rl, out: color.Output}, nil
}

// Run presents each group and returns the decision set for the dispatcher.
// Accepted inputs: Enter keeps the suggestion, an index overrides the
// keeper, "s" skips the group, "a" accepts every remaining suggestion, and
// "q" (or EOF or an interrupt) skips every remaining group.
func (s *Session) Run(groups []types.DuplicateGroup) (map[string]types.ReviewDecision, error) {
	defer s.rl.Close()

	decisions := make(map[string]types.ReviewDecision)
	green := color.New(color.FgGreen).SprintFunc()

	for i, group := range groups {
		suggested := s.engine.Choose(group.Files)
		s.printGroup(i+1, len(groups), group, suggested)

		answered := false
		for !answered {
			line, err := s.rl.Readline()
			if err != nil {
				if err == readline.ErrInterrupt || err == io.EOF {
					s.skipRemaining(decisions, groups[i:])
					return decisions, nil
				}
				return decisions, fmt.Errorf("reading review input: %w", err)
			}

			switch line = strings.TrimSpace(line); line {
			case "":
				// Suggestion accepted; no decision entry needed.
				answered = true
			case "s":
				decisions[group.Hash] = types.ReviewDecision{Skip: true}
				fmt.Fprintln(s.out, "  skipped")
				answered = true
			case "a":
				fmt.Fprintln(s.out, green("accepting all remaining suggestions"))
				return decisions, nil
			case "q":
				s.skipRemaining(decisions, groups[i:])
				return decisions, nil
			default:
				idx, convErr := strconv.Atoi(line)
				if convErr != nil || idx < 0 || idx >= len(group.Files) {
					fmt.Fprintf(s.out, "  enter a number 0-%d, s, a, or q\n", len(group.Files)-1)
					continue
				}
				decisions[group.Hash] = types.ReviewDecision{KeeperPath: group.Files[idx].Path}
				fmt.Fprintf(s.out, "  keeping %s\n", group.Files[idx].Path)
				answered = true
			}
		}
	}
	return decisions, nil
}

func (s *Session) skipRemaining(decisions map[string]types.ReviewDecision, remaining []types.DuplicateGroup) {
	for _, group := range remaining {
		decisions[group.Hash] = types.ReviewDecision{Skip: true}
	}
	fmt.Fprintf(s.out, "skipping %d remaining group(s)\n", len(remaining))
}

func (s *Session) printGroup(n, total int, group types.DuplicateGroup, suggested *types.FileRecord) {
	yellow := color.New(color.FgYellow).SprintFunc()

	shortHash := group.Hash
	if len(shortHash) > 12 {
		shortHash = shortHash[:12]
	}
	fmt.Fprintf(s.out, "\n%s %d/%d  hash %s  %d files, %s each\n",
		yellow("Group"), n, total, shortHash, len(group.Files), report.FormatSize(group.Size()))

	for i, f := range group.Files {
		marker := " "
		if f.Path == suggested.Path {
			marker = "*"
		}
		score := 0
		if f.FolderScore != nil {
			score = *f.FolderScore
		}
		fmt.Fprintf(s.out, "  %s [%d] %-60s score %4d  %s\n",
			marker, i, f.Path, score, f.EarliestTime().Format("2006-01-02"))
	}
	fmt.Fprintf(s.out, "Keep which? [Enter=suggested, 0-%d, s=skip, a=all, q=quit]\n", len(group.Files)-1)
}
