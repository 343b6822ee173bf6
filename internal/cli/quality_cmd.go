package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sift/internal/extract"
	"github.com/lucasnoah/sift/internal/quality"
)

var qualityCmd = &cobra.Command{
	Use:   "quality [extractor]",
	Short: "Score extractors against their ground-truth samples",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := extract.NewRegistry()

		var reports []quality.Report
		if len(args) == 1 {
			p := reg.Lookup(args[0])
			if p == nil {
				return fmt.Errorf("unknown extractor %q", args[0])
			}
			reports = []quality.Report{quality.ScorePlugin(p)}
		} else {
			reports = quality.ScoreAll(reg)
		}

		for _, rep := range reports {
			fmt.Printf("%-12s %3d/100  (%d/%d checks)\n", rep.Extractor, rep.Score, rep.Passed, rep.Checks)
			for _, f := range rep.Failures {
				fmt.Println("    ", f)
			}
		}

		if !quality.AllPass(reports) {
			fmt.Fprintf(os.Stderr, "quality below the %d acceptance bar\n", quality.PassBar)
			os.Exit(1)
		}
		return nil
	},
}
