package ci

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CmdRunner provides gh command execution. Interface for testing.
type CmdRunner interface {
	Run(args ...string) (string, error)
}

// ExecRunner runs gh commands via exec.
type ExecRunner struct{}

func (r *ExecRunner) Run(args ...string) (string, error) {
	cmd := exec.Command("gh", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("gh %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// GitHub fetches check runs and workflow logs via the gh CLI. Completed-run
// logs are immutable, so they are memoized in a TTL cache; transient fetch
// failures are retried with doubling backoff.
type GitHub struct {
	cmd     CmdRunner
	logs    *gocache.Cache
	retries int
	backoff time.Duration
}

// NewGitHub creates a GitHub provider with the given log cache TTL.
func NewGitHub(cmd CmdRunner, logTTL time.Duration) *GitHub {
	return &GitHub{
		cmd:     cmd,
		logs:    gocache.New(logTTL, 2*logTTL),
		retries: 3,
		backoff: time.Second,
	}
}

func (g *GitHub) Name() string { return "github" }

type ghRun struct {
	DatabaseID int64  `json:"databaseId"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

// Checks lists workflow runs for a branch (or the current branch when ref
// is empty).
func (g *GitHub) Checks(ctx context.Context, ref string) ([]Check, error) {
	args := []string{"run", "list", "--json", "databaseId,name,status,conclusion", "--limit", "30"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	out, err := g.retry(ctx, args)
	if err != nil {
		return nil, err
	}

	var runs []ghRun
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		return nil, fmt.Errorf("decode run list: %w", err)
	}

	checks := make([]Check, 0, len(runs))
	for _, r := range runs {
		checks = append(checks, Check{
			Name:       r.Name,
			Status:     r.Status,
			Conclusion: r.Conclusion,
			RunID:      r.DatabaseID,
		})
	}
	return checks, nil
}

// Log fetches the failed-step log for a workflow run, from cache when
// possible.
func (g *GitHub) Log(ctx context.Context, runID int64) (string, error) {
	key := strconv.FormatInt(runID, 10)
	if cached, ok := g.logs.Get(key); ok {
		return cached.(string), nil
	}

	out, err := g.retry(ctx, []string{"run", "view", key, "--log-failed"})
	if err != nil {
		return "", err
	}
	g.logs.Set(key, out, gocache.DefaultExpiration)
	return out, nil
}

// retry runs a gh command, retrying transient failures with doubling
// backoff. Non-transient errors (auth, not found) fail immediately.
func (g *GitHub) retry(ctx context.Context, args []string) (string, error) {
	backoff := g.backoff
	var lastErr error
	for attempt := 0; attempt < g.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		out, err := g.cmd.Run(args...)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("gh %s: giving up after %d attempts: %w", strings.Join(args, " "), g.retries, lastErr)
}

var transientMarkers = []string{
	"timeout",
	"timed out",
	"connection reset",
	"temporarily unavailable",
	"rate limit",
	"502",
	"503",
	"504",
}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
