package main

import (
	"context"
	"errors"

	"github.com/aretw0/tabstate/internal/cli"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Inspect the dispatch log of a running store",
}

var debugTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the dispatch log of a debug server or Redis channel",
	Long: `Connects to a debug TCP server (default) or subscribes to the Redis debug
channel with --redis, and prints one line per dispatch phase:

  <id> - START - <kind>
  <id> - END [<ns> ns]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		fromRedis, _ := cmd.Flags().GetBool("redis")
		pretty, _ := cmd.Flags().GetBool("pretty")
		if addr == "" {
			addr = cfg.Debug.Addr
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		err := cli.Tail(ctx, cli.TailOptions{
			Addr:      addr,
			FromRedis: fromRedis,
			Redis:     cfg.Redis,
			Out:       cmd.OutOrStdout(),
			Pretty:    pretty,
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugTailCmd)
	debugTailCmd.Flags().String("addr", "", "Debug server address (default from config, :6701)")
	debugTailCmd.Flags().Bool("redis", false, "Read from the Redis debug channel instead")
	debugTailCmd.Flags().Bool("pretty", false, "Align phases, kinds and durations")
}
