package cmd

import (
	"context"
	"fmt"

	"gdaserver/internal/app"

	"github.com/spf13/cobra"
)

type serveOptions struct {
	configPath     string
	profiles       []string
	debug          bool
	metricsAddress string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server and block until it is stopped",
		Long: `Starts the configured infrastructure processes, waits for them to settle,
then brings up the object servers. Once they are up the status port answers
STATUS queries. Ctrl+C or SIGTERM shuts everything down in reverse order.

Configuration:
  gdaserver loads ~/.config/gdaserver/config.yaml and then
  .gdaserver/config.yaml in the current directory, each layered over the
  built-in defaults. Use --config to load a single file instead.

Startup failures are logged and written to the file named by
OBJECT_SERVER_STARTUP_FILE. The process still exits with status 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Load configuration from this file only")
	cmd.Flags().StringArrayVarP(&opts.profiles, "profile", "p", nil, "Object server profile to start (repeatable, default all)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable general debug logging")
	cmd.Flags().StringVar(&opts.metricsAddress, "metrics-address", "", "Serve Prometheus metrics on this address")

	return cmd
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg := app.NewConfig(opts.configPath, opts.profiles, opts.debug)
	cfg.MetricsAddress = opts.metricsAddress
	cfg.Version = rootCmd.Version

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}
