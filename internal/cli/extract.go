package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sift/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract structured errors from tool output (stdin when no file given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contextHint, _ := cmd.Flags().GetString("context")
		extractorName, _ := cmd.Flags().GetString("extractor")
		asJSON, _ := cmd.Flags().GetBool("json")

		var raw []byte
		var err error
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
		} else {
			raw, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
		}

		reg := extract.NewRegistry()

		var res extract.Result
		if extractorName != "" {
			p := reg.Lookup(extractorName)
			if p == nil {
				return fmt.Errorf("unknown extractor %q", extractorName)
			}
			res = p.Extract(string(raw), contextHint)
		} else {
			res = reg.Run(contextHint, string(raw))
		}

		if asJSON {
			return printJSON(res)
		}
		printResult(res)
		return nil
	},
}

func init() {
	extractCmd.Flags().String("context", "", "step/check name used to enrich guidance text")
	extractCmd.Flags().String("extractor", "", "bypass detection and use a specific extractor")
	extractCmd.Flags().Bool("json", false, "print the full result as JSON")
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printResult(res extract.Result) {
	fmt.Println(res.Summary)
	if res.Metadata.Detection != nil {
		fmt.Printf("detected: %s (confidence %d)\n", res.Metadata.Detection.Extractor, res.Metadata.Detection.Confidence)
	}
	if res.ErrorSummary != "" {
		fmt.Println()
		fmt.Println(res.ErrorSummary)
	}
	if res.Guidance != "" {
		fmt.Println()
		fmt.Println(res.Guidance)
	}
	for _, issue := range res.Metadata.Issues {
		fmt.Fprintln(os.Stderr, "note:", issue)
	}
}
