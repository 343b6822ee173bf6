package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"
)

// TreeHasher produces a content hash of a working tree, used as the cache
// key for validation results.
type TreeHasher interface {
	TreeHash(dir string) (string, error)
}

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

// GitTreeHasher hashes a working tree as HEAD plus the uncommitted delta:
// the diff against HEAD and the list of untracked files. Two trees with
// the same hash produce the same validation results, which is all the
// cache key needs to guarantee.
type GitTreeHasher struct {
	Git GitRunner
}

func NewGitTreeHasher() *GitTreeHasher {
	return &GitTreeHasher{Git: &ExecGit{}}
}

func (g *GitTreeHasher) TreeHash(dir string) (string, error) {
	head, err := g.Git.RunGit(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}

	diff, err := g.Git.RunGit(dir, "diff", "HEAD")
	if err != nil {
		return "", fmt.Errorf("diff working tree: %w", err)
	}

	untracked, err := g.Git.RunGit(dir, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return "", fmt.Errorf("list untracked files: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(head))
	h.Write([]byte{0})
	h.Write([]byte(diff))
	h.Write([]byte{0})
	h.Write([]byte(untracked))
	return hex.EncodeToString(h.Sum(nil)), nil
}
