package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/datumkit/pkg/pipeline"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <store> [store...]",
	Short: "Check that stores share one key sequence",
	Long: `Walk every store in lockstep and report the number of aligned records.
Fails naming the stores and position at which the stores diverge.

Example:
  datum verify images labels`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, func(tools *pipeline.Tools) (*pipeline.Report, error) {
			return tools.Verify(args)
		})
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
