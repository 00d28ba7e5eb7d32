package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/willibrandon/pgnav/internal/gateway"
	"github.com/willibrandon/pgnav/internal/render"
)

// newHistoryCmd creates the history subcommand
func newHistoryCmd() *cobra.Command {
	var (
		search   string
		limit    int
		remote   bool
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List executed statements",
		Long: `List statements run from this machine, newest first. With --remote the
server's in-memory history for the current connection is shown instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if clearAll {
					if err := a.history.Clear(ctx); err != nil {
						return err
					}
					return render.Success(os.Stdout, "History cleared")
				}
				if remote {
					return printRemoteHistory(ctx, a, limit)
				}

				entries := a.history.Search(search)
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				if jsonOutput {
					return printJSON(entries)
				}
				for _, e := range entries {
					status := ""
					if e.Error != "" {
						status = " " + runewidth.Truncate(e.Error, 60, "...")
					}
					fmt.Printf("%-8s %-14s %6dms%s\n", e.Mode, render.Ago(e.ExecutedAt), e.DurationMs, status)
					fmt.Printf("  %s\n", render.SQL(oneLine(e.SQL, termWidth)))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only statements containing text")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries (0 for all)")
	cmd.Flags().BoolVar(&remote, "remote", false, "show the server's history")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete the local history")
	return cmd
}

func printRemoteHistory(ctx context.Context, a *app, limit int) error {
	records, err := gateway.DecodeHistory(a.client.History(ctx))
	if err != nil {
		return err
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	if jsonOutput {
		return printJSON(records)
	}
	for _, r := range records {
		fmt.Printf("%s  %s\n", r.Timestamp, render.SQL(oneLine(r.Query, termWidth)))
	}
	return nil
}

// oneLine collapses whitespace and truncates to width when width is set.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width > 4 {
		s = runewidth.Truncate(s, width-2, "...")
	}
	return s
}
