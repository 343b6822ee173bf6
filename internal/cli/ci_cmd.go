package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sift/internal/ci"
	"github.com/lucasnoah/sift/internal/config"
	"github.com/lucasnoah/sift/internal/extract"
)

var ciCmd = &cobra.Command{
	Use:   "ci",
	Short: "Fetch CI check logs and extract errors from failures",
}

var ciChecksCmd = &cobra.Command{
	Use:   "checks [ref]",
	Short: "List CI checks for a branch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		provider, err := openProvider()
		if err != nil {
			return err
		}
		checks, err := provider.Checks(cmd.Context(), ref)
		if err != nil {
			return err
		}
		for _, c := range checks {
			conclusion := c.Conclusion
			if conclusion == "" {
				conclusion = c.Status
			}
			fmt.Printf("%-10d %-10s %s\n", c.RunID, conclusion, c.Name)
		}
		return nil
	},
}

var ciLogCmd = &cobra.Command{
	Use:   "log <run-id>",
	Short: "Extract errors from one check run's log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		provider, err := openProvider()
		if err != nil {
			return err
		}
		log, err := provider.Log(cmd.Context(), runID)
		if err != nil {
			return err
		}
		printResult(extract.NewRegistry().Run("", log))
		return nil
	},
}

var ciWatchCmd = &cobra.Command{
	Use:   "watch [ref]",
	Short: "Extract errors from every failing check on a branch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		provider, err := openProvider()
		if err != nil {
			return err
		}

		reports, err := ci.Watch(cmd.Context(), provider, extract.NewRegistry(), ref)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("no failing checks")
			return nil
		}

		if asJSON {
			return printJSON(reports)
		}
		for _, rep := range reports {
			fmt.Printf("== %s (%s)\n", rep.Check.Name, rep.Check.Conclusion)
			if rep.FetchErr != "" {
				fmt.Println("  could not fetch log:", rep.FetchErr)
				continue
			}
			printResult(rep.Extraction)
			fmt.Println()
		}
		return nil
	},
}

func openProvider() (ci.Provider, error) {
	ttl := 15 * time.Minute
	if cfg, err := config.LoadDefault(); err == nil {
		if d, err := time.ParseDuration(cfg.CI.LogTTL); err == nil {
			ttl = d
		}
	}
	return ci.NewGitHub(&ci.ExecRunner{}, ttl), nil
}

func init() {
	ciWatchCmd.Flags().Bool("json", false, "print reports as JSON")
	ciCmd.AddCommand(ciChecksCmd)
	ciCmd.AddCommand(ciLogCmd)
	ciCmd.AddCommand(ciWatchCmd)
}
