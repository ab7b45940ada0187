package main

import (
	"os"
	"strings"

	"github.com/aretw0/tabstate"
	"github.com/aretw0/tabstate/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes one browser window as an MCP server with the get_state, list_tabs and
dispatch_action tools and the tabstate://state resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Logs go to Stderr.
- sse: Uses Server-Sent Events over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyDebugFlags(cmd)
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.ServeMCP(ctx, cli.MCPOptions{
			Config:    cfg,
			Logger:    logger,
			Version:   strings.TrimSpace(tabstate.Version),
			Transport: transport,
			Addr:      addr,
			BaseURL:   baseURL,
			In:        os.Stdin,
			Out:       os.Stdout,
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Listen address (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL of the SSE endpoint (default http://localhost<addr>)")
	addDebugFlags(mcpCmd)
}
