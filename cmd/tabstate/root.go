package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/tabstate/internal/cli"
	"github.com/aretw0/tabstate/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tabstate",
	Short: "tabstate is a browser state container",
	Long: `tabstate keeps the tabs of a browser window in a single-writer store.
Actions go through middleware and reducers; every dispatch can be traced on the
debug sink, over TCP or Redis.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("redis-addr") {
			loaded.Redis.Addr, _ = cmd.Flags().GetString("redis-addr")
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		logger, err = cli.NewLogger(cfg.LogLevel)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyDebugFlags lets --debug and --debug-addr override the debug section.
func applyDebugFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("debug") {
		cfg.Debug.Enabled, _ = cmd.Flags().GetBool("debug")
	}
	if cmd.Flags().Changed("debug-addr") {
		cfg.Debug.Addr, _ = cmd.Flags().GetString("debug-addr")
		cfg.Debug.Enabled = true
	}
}

func addDebugFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("debug", false, "Stream the dispatch log on the debug TCP server")
	cmd.Flags().String("debug-addr", "", "Address of the debug TCP server (implies --debug)")
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for the debug channel and window locks")
}
