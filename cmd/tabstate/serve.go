package main

import (
	"strings"

	"github.com/aretw0/tabstate"
	"github.com/aretw0/tabstate/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP introspection server",
	Long: `Serves a registry of browser windows over HTTP: state and tab reads, action
dispatch, a server-sent event stream of state changes and Prometheus metrics.
With Redis configured, dispatch logs are published to the debug channel and
window ownership is leased so that only one process writes a window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyDebugFlags(cmd)
		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		err := cli.Serve(ctx, cli.ServeOptions{
			Config:  cfg,
			Logger:  logger,
			Version: strings.TrimSpace(tabstate.Version),
		})
		if sig := ctx.Signal(); sig != nil {
			logger.Info("server stopped", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "HTTP listen address (default from config, :8080)")
	addDebugFlags(serveCmd)
}
