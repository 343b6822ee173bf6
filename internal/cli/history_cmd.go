package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sift/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect validation runs recorded as git notes",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("limit")
		store, err := openHistory()
		if err != nil {
			return err
		}

		entries, err := store.List(n)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}

		for _, e := range entries {
			status := "passed"
			failures := 0
			for _, s := range e.Run.Steps {
				failures += s.Extraction.TotalErrors
			}
			if !e.Run.Passed {
				status = fmt.Sprintf("failed (%d errors)", failures)
			}
			fmt.Printf("%.12s  %s  %d step(s)  %s\n",
				e.Commit, e.Run.StartedAt.Format("2006-01-02 15:04"), len(e.Run.Steps), status)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <commit>",
	Short: "Show the run recorded against a commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		run, err := store.Show(args[0])
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

func openHistory() (*history.Store, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return history.NewStore(&history.ExecGit{}, dir), nil
}

func init() {
	historyListCmd.Flags().Int("limit", 10, "maximum entries to list")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}
