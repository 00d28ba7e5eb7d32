package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Flags
	configPath string
	debug      bool
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pgnav",
		Short: "Command-line client for the pgweb browsing API",
		Long: `pgnav talks to a running pgweb server over its HTTP API. It browses
schemas and table rows, runs statements from files or stdin, and keeps a
local history and session so that consecutive invocations share one
backend connection.

Examples:
  pgnav connect postgres://postgres@localhost:5432/shop
  pgnav objects
  pgnav rows public.users --sort id --desc --page 2
  pgnav rows public.users --filter "age greater 30"
  echo "select now()" | pgnav query
  pgnav query --file report.sql --line 12`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: setupOutput,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/pgnav/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(
		newObjectsCmd(),
		newRowsCmd(),
		newActionCmd(),
		newQueryCmd(),
		newExplainCmd(),
		newAnalyzeCmd(),
		newCancelCmd(),
		newHistoryCmd(),
		newConnectCmd(),
		newDisconnectCmd(),
		newSwitchDBCmd(),
		newConnectionCmd(),
		newStateCmd(),
		newSnippetsCmd(),
		newLogCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
