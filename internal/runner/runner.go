// Package runner executes configured validation steps, feeds their output
// through the extraction engine, and caches results by working-tree hash so
// an unchanged tree never pays for the same step twice.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/sift/internal/cache"
	"github.com/lucasnoah/sift/internal/extract"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Step is one validation step to execute.
type Step struct {
	Name      string
	Command   string
	Extractor string // bypasses format detection when set
	Timeout   time.Duration
}

// StepResult is the outcome of one step.
type StepResult struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Command    string         `json:"command"`
	Passed     bool           `json:"passed"`
	ExitCode   int            `json:"exit_code"`
	DurationMs int            `json:"duration_ms"`
	TimedOut   bool           `json:"timed_out,omitempty"`
	Cached     bool           `json:"cached,omitempty"`
	Extraction extract.Result `json:"extraction"`
}

// RunResult aggregates a full validation run.
type RunResult struct {
	ID        string       `json:"id"`
	TreeHash  string       `json:"tree_hash,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	Passed    bool         `json:"passed"`
	Steps     []StepResult `json:"steps"`
}

// Runner executes steps and extracts structured errors from their output.
type Runner struct {
	cmd   CommandRunner
	reg   *extract.Registry
	cache *cache.Cache // nil disables caching
	hash  TreeHasher   // nil disables caching
}

// New creates a Runner. cache and hasher may be nil to disable result
// caching.
func New(cmd CommandRunner, reg *extract.Registry, c *cache.Cache, hasher TreeHasher) *Runner {
	return &Runner{cmd: cmd, reg: reg, cache: c, hash: hasher}
}

// Run executes all steps in order in the given directory. A step failure
// does not stop the run; callers get every step's extraction.
func (r *Runner) Run(ctx context.Context, dir string, steps []Step) (*RunResult, error) {
	run := &RunResult{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Passed:    true,
	}

	treeHash := ""
	if r.cache != nil && r.hash != nil {
		h, err := r.hash.TreeHash(dir)
		if err == nil {
			treeHash = h
		}
		// An unhashable tree (not a git repo) just runs uncached.
	}
	run.TreeHash = treeHash

	for _, step := range steps {
		if treeHash != "" {
			if sr, ok := r.lookup(treeHash, step); ok {
				sr.Cached = true
				run.Steps = append(run.Steps, *sr)
				if !sr.Passed {
					run.Passed = false
				}
				continue
			}
		}

		sr, err := r.runStep(ctx, dir, step)
		if err != nil {
			return nil, fmt.Errorf("run step %q: %w", step.Name, err)
		}
		if !sr.Passed {
			run.Passed = false
		}
		run.Steps = append(run.Steps, *sr)

		if treeHash != "" {
			r.store(treeHash, step, sr)
		}
	}

	return run, nil
}

func (r *Runner) runStep(ctx context.Context, dir string, step Step) (*StepResult, error) {
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := r.cmd.Run(stepCtx, dir, step.Command)
	durationMs := int(time.Since(start).Milliseconds())

	sr := &StepResult{
		ID:         uuid.NewString(),
		Name:       step.Name,
		Command:    step.Command,
		ExitCode:   exitCode,
		DurationMs: durationMs,
	}

	if err != nil {
		if stepCtx.Err() == context.DeadlineExceeded {
			sr.TimedOut = true
			sr.ExitCode = -1
			sr.Extraction = r.extractFrom(step, combineOutput(stdout, stderr)+
				fmt.Sprintf("\nError: step timed out after %s", timeout))
			return sr, nil
		}
		return nil, err
	}

	sr.Passed = exitCode == 0
	sr.Extraction = r.extractFrom(step, combineOutput(stdout, stderr))
	return sr, nil
}

// extractFrom routes output through the engine, honoring a configured
// extractor override. The step name is passed as the context hint: it
// enriches guidance text but never influences routing.
func (r *Runner) extractFrom(step Step, output string) extract.Result {
	if step.Extractor != "" {
		if p := r.reg.Lookup(step.Extractor); p != nil {
			return p.Extract(output, step.Name)
		}
	}
	return r.reg.Run(step.Name, output)
}

func (r *Runner) lookup(treeHash string, step Step) (*StepResult, bool) {
	data, ok, err := r.cache.Get(treeHash, step.Name, step.Command)
	if err != nil || !ok {
		return nil, false
	}
	var sr StepResult
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, false
	}
	return &sr, true
}

func (r *Runner) store(treeHash string, step Step, sr *StepResult) {
	data, err := json.Marshal(sr)
	if err != nil {
		return
	}
	// Cache write failures are not fatal; the next run just re-executes.
	_ = r.cache.Put(treeHash, step.Name, step.Command, data)
}

func combineOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + "\n" + stderr
}
