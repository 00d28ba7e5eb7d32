package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/willibrandon/pgnav/internal/export"
	"github.com/willibrandon/pgnav/internal/logger"
	"github.com/willibrandon/pgnav/internal/render"
	"github.com/willibrandon/pgnav/internal/session"
)

var errResultFailed = errors.New("query failed")

// queryFlags are shared by query, explain and analyze.
type queryFlags struct {
	file   string
	line   int
	all    bool
	echo   bool
	format string
	out    string
}

func (f *queryFlags) register(cmd *cobra.Command, exportable bool) {
	cmd.Flags().StringVar(&f.file, "file", "", "read the buffer from a file")
	cmd.Flags().IntVar(&f.line, "line", 1, "cursor line (1-based) selecting the statement to run")
	cmd.Flags().BoolVar(&f.all, "all", false, "run the whole buffer instead of the statement under the cursor")
	cmd.Flags().BoolVar(&f.echo, "echo", false, "print the statement before running it")
	if exportable {
		cmd.Flags().StringVar(&f.format, "format", "", "write results as csv or json")
		cmd.Flags().StringVarP(&f.out, "out", "o", "", "write results to a file (implies --format csv unless set)")
	}
}

// newQueryCmd creates the query subcommand
func newQueryCmd() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run a statement",
		Long: `Run the statement under the cursor line of a buffer. The buffer is the
argument, the --file contents, or stdin when it is not a terminal; with none
of these the last buffer is reused. Statements are separated by blank lines.

Ctrl-C cancels the running statement on the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatement(cmd, args, &flags, session.ModeQuery)
		},
	}
	flags.register(cmd, true)
	return cmd
}

// newExplainCmd creates the explain subcommand
func newExplainCmd() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "explain [sql]",
		Short: "Show the plan of a statement",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatement(cmd, args, &flags, session.ModeExplain)
		},
	}
	flags.register(cmd, false)
	return cmd
}

// newAnalyzeCmd creates the analyze subcommand
func newAnalyzeCmd() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "analyze [sql]",
		Short: "Run a statement under EXPLAIN ANALYZE",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatement(cmd, args, &flags, session.ModeAnalyze)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func runStatement(cmd *cobra.Command, args []string, flags *queryFlags, mode session.Mode) error {
	var format export.Format
	if flags.format != "" || flags.out != "" {
		var err error
		if format, err = export.ParseFormat(defaultString(flags.format, "csv")); err != nil {
			return err
		}
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		buffer, err := readBuffer(ctx, a, args, flags.file)
		if err != nil {
			return err
		}

		in := session.QueryInput{Buffer: buffer, CursorRow: max(flags.line-1, 0)}
		if flags.all {
			in.Selection = buffer
		}

		stop := cancelOnInterrupt(a.ctrl)
		defer stop()

		var out *session.QueryOutcome
		switch mode {
		case session.ModeExplain:
			out, err = a.ctrl.ExplainQuery(ctx, in)
		case session.ModeAnalyze:
			out, err = a.ctrl.AnalyzeQuery(ctx, in)
		default:
			out, err = a.ctrl.RunQuery(ctx, in)
		}
		if err != nil {
			return err
		}

		if flags.echo {
			fmt.Fprintln(os.Stderr, render.SQL(out.Resolution.Text))
		}
		if out.SchemaRefreshed {
			logger.Debug("schema tree reloaded after DDL")
		}

		switch {
		case flags.out != "" && !out.Result.Failed():
			res, err := export.ToFile(out.Result, flags.out, format)
			if err != nil {
				return err
			}
			return render.Success(os.Stdout, "%s", res)
		case format != "" && !out.Result.Failed():
			return export.Write(os.Stdout, out.Result, format)
		default:
			return printResult(out.Result)
		}
	})
}

// readBuffer picks the editor buffer from args, a file, piped stdin or the
// persisted last buffer, in that order.
func readBuffer(ctx context.Context, a *app, args []string, file string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(strings.TrimSpace(string(data))) > 0 {
			return string(data), nil
		}
	}
	last, err := a.state.LastQueryText(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(last) == "" {
		return "", errors.New("no statement given")
	}
	return last, nil
}

// cancelOnInterrupt cancels the in-flight statement on SIGINT or SIGTERM.
func cancelOnInterrupt(ctrl *session.Controller) func() {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nCancelling...")
			if _, err := ctrl.CancelQuery(context.Background()); err != nil {
				logger.Warn("cancel failed", "error", err)
			}
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// newCancelCmd creates the cancel subcommand
func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [sql]",
		Short: "Cancel server processes running a statement",
		Long: `Cancel the backend processes whose current query contains the given
statement. Without an argument the most recent statement in history is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sql := strings.Join(args, " ")
				if sql == "" {
					sql = a.history.Previous()
				}

				out, err := a.ctrl.CancelStatement(ctx, sql)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(out)
				}
				if out.Error != "" {
					_ = render.Error(os.Stdout, out.Error, termWidth)
					return errResultFailed
				}
				if len(out.PIDs) == 0 {
					fmt.Println("No running process matches the statement")
					return nil
				}
				return render.Success(os.Stdout, "Cancel requested for pid %v", out.PIDs)
			})
		},
	}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
