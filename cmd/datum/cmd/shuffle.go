package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/datumkit/pkg/pipeline"
)

// shuffleCmd represents the shuffle command
var shuffleCmd = &cobra.Command{
	Use:   "shuffle <store> [store...]",
	Short: "Shuffle aligned stores with one shared permutation",
	Long: `Write <store>_shuffled for every store. The same permutation is applied
to all stores, so records sharing a key before the shuffle still share a key
after it. Keys are kept; values move between them.

A seed of 0 draws a random seed, which is logged and reported so the shuffle
can be repeated.

Examples:
  datum shuffle images labels
  datum shuffle images labels --seed 1234`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := cfg.Seed
		if cmd.Flags().Changed("seed") {
			seed, _ = cmd.Flags().GetUint64("seed")
		}
		return runTool(cmd, func(tools *pipeline.Tools) (*pipeline.Report, error) {
			return tools.Shuffle(seed, args)
		})
	},
}

func init() {
	rootCmd.AddCommand(shuffleCmd)
	shuffleCmd.Flags().Uint64("seed", 0, "Shuffle seed (0 draws a random one)")
}
