package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willibrandon/pgnav/internal/config"
	"github.com/willibrandon/pgnav/internal/logger"
)

// newLogCmd creates the log subcommand
func newLogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent warnings and failed requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := logger.DefaultPath()
			if cfg, err := config.LoadConfig(configPath); err == nil && cfg.LogFile != "" {
				path = cfg.LogFile
			}

			entries, err := logger.ReadProblems(path, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Printf("No problems logged in %s\n", path)
				return nil
			}
			for _, e := range entries {
				fmt.Println(e.Format())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}
