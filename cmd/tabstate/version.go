package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/tabstate"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tabstate",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tabstate version %s\n", strings.TrimSpace(tabstate.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
