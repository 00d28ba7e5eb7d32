package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/willibrandon/pgnav/internal/models"
	"github.com/willibrandon/pgnav/internal/render"
)

// newStateCmd creates the state subcommand
func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show or change persisted client settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				snap, err := a.state.Snapshot(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(snap)
				}
				values := map[string]string{
					"session":    snap.SessionID,
					"rows":       strconv.Itoa(snap.RowsLimit),
					"tab":        string(snap.LastSelectedTab),
					"last query": oneLine(snap.LastQueryText, termWidth-14),
					"database":   a.db.Path(),
					"server":     a.cfg.Server.URL,
				}
				keys := []string{"server", "session", "rows", "tab", "last query", "database"}
				return render.KeyValues(os.Stdout, keys, func(k string) string { return values[k] })
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "rows <n>",
			Short: "Set rows per page",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid row count %q", args[0])
				}
				return withApp(cmd, func(ctx context.Context, a *app) error {
					if _, err := a.ctrl.SetRowsLimit(ctx, n); err != nil {
						return err
					}
					return render.Success(os.Stdout, "Rows per page set to %d", n)
				})
			},
		},
		&cobra.Command{
			Use:   "tab <tab>",
			Short: "Set the last selected tab",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) error {
					return a.ctrl.SelectTab(ctx, models.Tab(args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Start a new session id",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) error {
					id, err := a.ctrl.ResetSession(ctx)
					if err != nil {
						return err
					}
					return render.Success(os.Stdout, "New session %s", id)
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget all persisted settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) error {
					if err := a.state.Clear(ctx); err != nil {
						return err
					}
					return render.Success(os.Stdout, "State cleared")
				})
			},
		},
	)
	return cmd
}
