/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/datumkit/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with default settings to the --config path.

The file holds the key width, progress interval, output store suffixes,
storage tuning, logging level and record browser settings. Edit it to change
the defaults every datum command runs with.

Examples:
  datum init
  datum init --config ./datum.yaml --data-dir ./datasets --with-api-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")
		withAPIKey, _ := cmd.Flags().GetBool("with-api-key")
		out := cmd.OutOrStdout()

		if config.ConfigExists(path) && !force {
			fmt.Fprintf(out, "Configuration already exists at %s. Use --force to overwrite it.\n", path)
			return nil
		}

		written, err := config.BootstrapConfig(path, cfg.DataDir, withAPIKey)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Wrote configuration to %s\n", path)
		fmt.Fprintf(out, "Data directory: %s\n", written.DataDir)
		if written.Serve.APIKey != "" {
			fmt.Fprintf(out, "Record browser API key: %s\n", written.Serve.APIKey)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	initCmd.Flags().Bool("with-api-key", false, "Generate an API key for the record browser")
}
