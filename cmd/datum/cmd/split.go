package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/datumkit/pkg/pipeline"
)

// splitCmd represents the split command
var splitCmd = &cobra.Command{
	Use:   "split <store> <out_prefix>",
	Short: "Split records into input and target stores",
	Long: `Write the payload of every record to <out_prefix>_input and its float
fields, as a 1x1xk record, to <out_prefix>_target. Both keep the original
keys.

Example:
  datum split driving driving`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, func(tools *pipeline.Tools) (*pipeline.Report, error) {
			return tools.SplitFields(args[0], args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
}
