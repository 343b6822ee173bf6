package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "sift",
	Short: "sift - structured error extraction from tool output",
	Long: `sift turns raw build/test/lint output into a bounded, structured list of
failures: which file and line, what went wrong, how many failures total, and
what to do about it. Results are sized for an automated agent or a terminal,
not a human scrolling a log.

Output can come from a pipe, a configured validation run, or a CI provider's
failing check logs. Results are cached by working-tree hash and recorded as
git notes.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(ciCmd)
	rootCmd.AddCommand(qualityCmd)
	rootCmd.AddCommand(configCmd)
}
