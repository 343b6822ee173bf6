// Package history stores validation run results as git notes, keeping the
// record attached to the commit it validated without touching the working
// tree or requiring any extra infrastructure.
package history

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/lucasnoah/sift/internal/runner"
)

// DefaultRef is the notes ref sift writes under.
const DefaultRef = "refs/notes/sift"

// GitRunner provides git command execution. Interface for testing.
type GitRunner interface {
	RunGit(dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner using exec.Command.
type ExecGit struct{}

func (e *ExecGit) RunGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Store reads and writes run history under a notes ref.
type Store struct {
	git GitRunner
	dir string
	ref string
}

// NewStore creates a Store for the repository at dir.
func NewStore(git GitRunner, dir string) *Store {
	return &Store{git: git, dir: dir, ref: DefaultRef}
}

// Entry pairs a commit with the run recorded against it.
type Entry struct {
	Commit string           `json:"commit"`
	Run    runner.RunResult `json:"run"`
}

// Append records a run result against HEAD, replacing any previous note.
func (s *Store) Append(run *runner.RunResult) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	_, err = s.git.RunGit(s.dir, "notes", "--ref", s.ref, "add", "-f", "-m", string(data), "HEAD")
	if err != nil {
		return fmt.Errorf("write note: %w", err)
	}
	return nil
}

// List returns up to n entries, newest commit first, skipping notes that
// do not decode as run results.
func (s *Store) List(n int) ([]Entry, error) {
	out, err := s.git.RunGit(s.dir, "notes", "--ref", s.ref, "list")
	if err != nil {
		// No notes ref yet means no history, not an error.
		if strings.Contains(err.Error(), "No note") || strings.Contains(err.Error(), "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	var commits []string
	for _, line := range strings.Split(out, "\n") {
		// Format: <note object> <annotated commit>
		fields := strings.Fields(line)
		if len(fields) == 2 {
			commits = append(commits, fields[1])
		}
	}

	ordered, err := s.orderByRecency(commits)
	if err != nil {
		ordered = commits
	}

	var entries []Entry
	for _, commit := range ordered {
		run, err := s.Show(commit)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Commit: commit, Run: *run})
		if n > 0 && len(entries) == n {
			break
		}
	}
	return entries, nil
}

// Show returns the run recorded against the given commit.
func (s *Store) Show(commit string) (*runner.RunResult, error) {
	out, err := s.git.RunGit(s.dir, "notes", "--ref", s.ref, "show", commit)
	if err != nil {
		return nil, fmt.Errorf("show note for %s: %w", commit, err)
	}
	var run runner.RunResult
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		return nil, fmt.Errorf("decode note for %s: %w", commit, err)
	}
	return &run, nil
}

// orderByRecency sorts annotated commits by their position in the log so
// List output is newest-first regardless of notes-ref ordering.
func (s *Store) orderByRecency(commits []string) ([]string, error) {
	if len(commits) < 2 {
		return commits, nil
	}
	noted := make(map[string]bool, len(commits))
	for _, c := range commits {
		noted[c] = true
	}
	out, err := s.git.RunGit(s.dir, "rev-list", "HEAD")
	if err != nil {
		return nil, err
	}
	var ordered []string
	for _, line := range strings.Split(out, "\n") {
		c := strings.TrimSpace(line)
		if noted[c] {
			ordered = append(ordered, c)
			delete(noted, c)
		}
	}
	// Notes on commits outside HEAD's ancestry go last, in original order.
	for _, c := range commits {
		if noted[c] {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}
