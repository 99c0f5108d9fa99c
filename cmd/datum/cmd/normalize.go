package cmd

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/datumkit/pkg/pipeline"
)

// normalizeCmd represents the normalize command
var normalizeCmd = &cobra.Command{
	Use:   "normalize <a> <b> <store> [out_store]",
	Short: "Map float fields into [a, b]",
	Long: `Scan the float fields of every record, print each field's min and max
and the slope and bias mapping it into [a, b]. With out_store, also write
every record with its fields normalized. With --params, save the parameters
so they can be applied or inverted later.

Put flags before a "--" when a is negative, so it is not read as a flag.

Examples:
  datum normalize 0 1 driving_target
  datum normalize --params norm.yaml -- -1 1 driving_target driving_target_norm`,
	Args: cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return errors.Newf("a must be a number, got %q", args[0])
		}
		b, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return errors.Newf("b must be a number, got %q", args[1])
		}

		opts := pipeline.NormalizeOptions{}
		opts.ParamsFile, _ = cmd.Flags().GetString("params")
		if len(args) == 4 {
			opts.Output = args[3]
		}
		return runTool(cmd, func(tools *pipeline.Tools) (*pipeline.Report, error) {
			return tools.Normalize(a, b, args[2], opts)
		})
	},
}

// denormalizeCmd represents the denormalize command
var denormalizeCmd = &cobra.Command{
	Use:   "denormalize <params> <store> <out_store>",
	Short: "Undo a normalization with saved parameters",
	Long: `Apply the inverse of the parameters saved by normalize --params to every
record of store, writing the result to out_store.

Example:
  datum denormalize norm.yaml predictions predictions_raw`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, func(tools *pipeline.Tools) (*pipeline.Report, error) {
			return tools.Denormalize(args[0], args[1], args[2])
		})
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(denormalizeCmd)
	normalizeCmd.Flags().String("params", "", "Save the derived parameters to this YAML file")
}
