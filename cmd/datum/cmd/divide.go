package cmd

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/datumkit/pkg/pipeline"
)

// divideCmd represents the divide command
var divideCmd = &cobra.Command{
	Use:   "divide <train_size> <store> [store...]",
	Short: "Split aligned stores into train and test stores",
	Long: `Split every store into <store>_train holding the first train_size
aligned records and <store>_test holding the rest. Both sides are renumbered
00000000, 00000001, ... in their original order.

Example:
  datum divide 9000 images labels`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		trainSize, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Newf("train_size must be an integer, got %q", args[0])
		}
		return runTool(cmd, func(tools *pipeline.Tools) (*pipeline.Report, error) {
			return tools.Divide(trainSize, args[1:])
		})
	},
}

func init() {
	rootCmd.AddCommand(divideCmd)
}
