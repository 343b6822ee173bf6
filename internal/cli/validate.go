package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sift/internal/cache"
	"github.com/lucasnoah/sift/internal/config"
	"github.com/lucasnoah/sift/internal/extract"
	"github.com/lucasnoah/sift/internal/history"
	"github.com/lucasnoah/sift/internal/runner"
)

var validateCmd = &cobra.Command{
	Use:   "validate [steps...]",
	Short: "Run configured validation steps and extract errors from failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		noCache, _ := cmd.Flags().GetBool("no-cache")
		asJSON, _ := cmd.Flags().GetBool("json")
		record, _ := cmd.Flags().GetBool("record")

		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}
		steps, err := selectSteps(cfg, args)
		if err != nil {
			return err
		}

		dir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}

		var store *cache.Cache
		var hasher runner.TreeHasher
		if cfg.Validate.Cache && !noCache {
			path := cfg.Validate.CacheDir
			if path == "" {
				path, err = cache.DefaultPath()
				if err != nil {
					return err
				}
			}
			store, err = cache.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(); err != nil {
				return err
			}
			hasher = runner.NewGitTreeHasher()
		}

		r := runner.New(&runner.ExecRunner{}, extract.NewRegistry(), store, hasher)
		run, err := r.Run(cmd.Context(), dir, steps)
		if err != nil {
			return err
		}

		if record {
			hist := history.NewStore(&history.ExecGit{}, dir)
			if err := hist.Append(run); err != nil {
				fmt.Fprintln(os.Stderr, "warning: could not record history:", err)
			}
		}

		if asJSON {
			if err := printJSON(run); err != nil {
				return err
			}
		} else {
			printRun(run)
		}

		if !run.Passed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("no-cache", false, "ignore cached results for this run")
	validateCmd.Flags().Bool("json", false, "print the full run result as JSON")
	validateCmd.Flags().Bool("record", false, "record the run as a git note")
}

// selectSteps maps step names to configured steps; no names means all.
func selectSteps(cfg *config.Config, names []string) ([]runner.Step, error) {
	byName := make(map[string]config.Step, len(cfg.Validate.Steps))
	for _, s := range cfg.Validate.Steps {
		byName[s.Name] = s
	}

	var chosen []config.Step
	if len(names) == 0 {
		chosen = cfg.Validate.Steps
	} else {
		for _, name := range names {
			s, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("step %q not defined in config", name)
			}
			chosen = append(chosen, s)
		}
	}

	steps := make([]runner.Step, 0, len(chosen))
	for _, s := range chosen {
		timeout, _ := time.ParseDuration(s.Timeout)
		steps = append(steps, runner.Step{
			Name:      s.Name,
			Command:   s.Command,
			Extractor: s.Extractor,
			Timeout:   timeout,
		})
	}
	return steps, nil
}

func printRun(run *runner.RunResult) {
	for _, sr := range run.Steps {
		status := "ok"
		if !sr.Passed {
			status = "FAIL"
		}
		cached := ""
		if sr.Cached {
			cached = " (cached)"
		}
		fmt.Printf("%-6s %s  %dms%s\n", status, sr.Name, sr.DurationMs, cached)
		if !sr.Passed {
			if sr.Extraction.ErrorSummary != "" {
				fmt.Println(indent(sr.Extraction.ErrorSummary, "  "))
			}
			if sr.Extraction.Guidance != "" {
				fmt.Println(indent(sr.Extraction.Guidance, "  "))
			}
		}
	}
	if run.Passed {
		fmt.Println("all steps passed")
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
