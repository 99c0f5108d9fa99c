package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/storage"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <store> <key>",
	Short: "Get the value stored under a key",
	Long: `Get the value stored under a key. With --decode the value is decoded as
a record and printed as JSON without its payload bytes.

Examples:
  datum get labels 00000000
  datum get driving_target 00000000 --decode`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		decode, _ := cmd.Flags().GetBool("decode")

		s, err := container.GetOpener(cfg).Open(cfg.ResolvePath(args[0]), storage.InputOptions())
		if err != nil {
			return err
		}
		defer s.Close()

		value, err := s.Get([]byte(args[1]))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !decode {
			fmt.Fprintf(out, "%s\n", string(value))
			return nil
		}

		r, err := codec.Unmarshal(value)
		if err != nil {
			return err
		}
		view := struct {
			Shape     codec.Shape `json:"shape"`
			Label     int32       `json:"label"`
			DataSize  int         `json:"data_size"`
			FloatData []float32   `json:"float_data,omitempty"`
		}{r.Shape(), r.Label, len(r.Data), r.FloatData}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().Bool("decode", false, "Decode the value as a record")
}
