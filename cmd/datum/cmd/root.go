/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"flag"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ssargent/datumkit/pkg/config"
	"github.com/ssargent/datumkit/pkg/di"
	"github.com/ssargent/datumkit/pkg/pipeline"
)

var (
	container *di.Container
	cfg       *config.Config
)

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "datum",
	Short: "datum - lockstep dataset preparation",
	Long: `datum prepares machine-learning datasets stored as ordered key-value
stores. Parallel stores that share a key sequence (images and labels, say)
are validated, divided, shuffled and normalized in lockstep, so that the
records at one key keep corresponding to each other.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if container == nil {
			return errors.New("dependency container not initialized")
		}
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	rootCmd.PersistentFlags().String("config", config.GetDefaultConfigPath(), "Configuration file")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Directory relative store paths are resolved against")
	rootCmd.PersistentFlags().Bool("overwrite", false, "Empty and reuse output stores that already exist")
	rootCmd.PersistentFlags().String("metrics-textfile", "", "Write run metrics to this node-exporter textfile")
}

// loadConfig reads the configuration file if there is one and applies flag
// overrides on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	loaded := config.DefaultConfig()
	if config.ConfigExists(path) {
		var err error
		if loaded, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
		klog.V(2).Infof("Loaded configuration from %s", path)
	} else if flags.Changed("config") && cmd != initCmd {
		return nil, errors.Newf("config file does not exist: %s", path)
	}

	if flags.Changed("data-dir") {
		loaded.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("overwrite") {
		loaded.Overwrite, _ = flags.GetBool("overwrite")
	}
	if flags.Changed("metrics-textfile") {
		loaded.Metrics.Textfile, _ = flags.GetString("metrics-textfile")
	}
	if !flags.Changed("v") {
		if err := flags.Set("v", strconv.Itoa(loaded.Logging.Verbosity())); err != nil {
			return nil, errors.Wrap(err, "setting log verbosity")
		}
	}

	if err := loaded.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return loaded, nil
}

// runTool runs one pipeline tool, prints its report and writes the metrics
// textfile when one is configured.
func runTool(cmd *cobra.Command, run func(tools *pipeline.Tools) (*pipeline.Report, error)) error {
	tools, err := container.GetTools(cfg)
	if err != nil {
		return err
	}

	report, err := run(tools)
	if path := cfg.Metrics.Textfile; path != "" {
		if werr := container.GetMetrics().WriteTextfile(path); werr != nil {
			klog.Warningf("writing metrics textfile %s: %v", path, werr)
		}
	}
	if err != nil {
		return err
	}
	return report.Print(cmd.OutOrStdout())
}
