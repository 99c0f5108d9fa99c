package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/datumkit/pkg/storage"
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put <store> <key> <value>",
	Short: "Put a raw value into a store",
	Long: `Put a raw key-value pair into a store, creating the store if needed.

Example:
  datum put labels 00000000 1`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opener := container.GetOpener(cfg)
		s, err := opener.Open(cfg.ResolvePath(args[0]), storage.Options{CreateIfMissing: true})
		if err != nil {
			return err
		}

		if err := s.Put([]byte(args[1]), []byte(args[2])); err != nil {
			_ = s.Close()
			return err
		}
		if err := s.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Successfully put key '%s' into %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
