/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/datumkit/pkg/api"
	"github.com/ssargent/datumkit/pkg/storage"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve <store> [store...]",
	Short: "Browse stores over HTTP",
	Long: `Start a read-only HTTP browser over the given stores.

Routes (under /api/v1):
  GET /health
  GET /stores
  GET /stores/{store}/records?start=<key>&limit=<n>&data=true
  GET /stores/{store}/records/{key}?neighbor=next|prev
  GET /stores/{store}/stats

When serve.api_key is configured or --api-key is given, requests must carry
it in the X-API-Key header. Prometheus metrics are served on /metrics.

Examples:
  datum serve images labels
  datum serve images labels --port 9200 --api-key mysecretkey`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := api.ServerConfig{
			Bind:   cfg.Serve.Bind,
			Port:   cfg.Serve.Port,
			APIKey: cfg.Serve.APIKey,
		}
		if cmd.Flags().Changed("port") {
			config.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			config.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			config.APIKey, _ = cmd.Flags().GetString("api-key")
		}

		opener := container.GetOpener(cfg)
		stores := make(map[string]storage.OrderedStore, len(args))
		defer func() {
			for _, s := range stores {
				_ = s.Close()
			}
		}()
		for _, name := range args {
			if _, dup := stores[name]; dup {
				return errors.Newf("store %s named twice", name)
			}
			s, err := opener.Open(cfg.ResolvePath(name), storage.InputOptions())
			if err != nil {
				return err
			}
			stores[name] = s
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := api.NewServer(stores, config, container.GetMetrics())
		return api.StartServer(ctx, server)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to listen on")
	serveCmd.Flags().String("api-key", "", "API key clients must send in X-API-Key")
}
