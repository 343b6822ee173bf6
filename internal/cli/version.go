package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sift version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sift", version)
	},
}
