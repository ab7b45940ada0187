package main

import (
	"os"
	"strings"

	"github.com/aretw0/tabstate"
	"github.com/aretw0/tabstate/internal/cli"
	"github.com/aretw0/tabstate/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Replay an action script and print the final state",
	Long: `Replays a YAML action script against a fresh window backed by the in-memory
engine. The final state is printed as markdown, styled on terminals, or as JSON
with --json. Expect steps make the command fail when the state does not match.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyDebugFlags(cmd)
		asJSON, _ := cmd.Flags().GetBool("json")

		if !asJSON && tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, strings.TrimSpace(tabstate.Version))
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.Replay(ctx, cli.ReplayOptions{
			Config:     cfg,
			ScriptPath: args[0],
			Out:        os.Stdout,
			JSON:       asJSON,
			Logger:     logger,
		})
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Bool("json", false, "Print the final state as JSON")
	addDebugFlags(replayCmd)
}
