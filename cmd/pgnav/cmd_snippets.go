package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/willibrandon/pgnav/internal/config"
	"github.com/willibrandon/pgnav/internal/render"
	"github.com/willibrandon/pgnav/internal/session"
	"github.com/willibrandon/pgnav/internal/snippets"
)

// newSnippetsCmd creates the snippets subcommand
func newSnippetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snippets",
		Short: "Manage saved statements",
	}
	cmd.AddCommand(
		newSnippetsListCmd(),
		newSnippetsSaveCmd(),
		newSnippetsRunCmd(),
		newSnippetsDeleteCmd(),
	)
	return cmd
}

// openSnippets loads the snippet file named by the configuration.
func openSnippets() (*snippets.Manager, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return snippets.NewManager(cfg.Snippets.Path)
}

func newSnippetsListCmd() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snippets",
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := openSnippets()
			if err != nil {
				return err
			}
			list := sm.Search(search)
			if jsonOutput {
				return printJSON(list)
			}
			if len(list) == 0 {
				fmt.Println("No snippets saved")
				return nil
			}
			for _, s := range list {
				line := s.Name
				if s.Description != "" {
					line += "  " + s.Description
				}
				fmt.Printf("%s  (%s)\n", line, render.Ago(s.UpdatedAt))
				fmt.Printf("  %s\n", render.SQL(oneLine(s.SQL, termWidth)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only snippets matching text")
	return cmd
}

func newSnippetsSaveCmd() *cobra.Command {
	var (
		description string
		file        string
	)

	cmd := &cobra.Command{
		Use:   "save <name> [sql]",
		Short: "Save a statement under a name",
		Long: `Save a statement under a name. The statement is the remaining arguments,
the --file contents, or the last query buffer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := openSnippets()
			if err != nil {
				return err
			}

			sql := strings.Join(args[1:], " ")
			if sql == "" {
				err := withApp(cmd, func(ctx context.Context, a *app) error {
					var err error
					sql, err = readBuffer(ctx, a, nil, file)
					return err
				})
				if err != nil {
					return err
				}
			}

			overwritten, err := sm.Save(args[0], sql, description)
			if err != nil {
				return err
			}
			if overwritten {
				return render.Success(os.Stdout, "Snippet %q updated", args[0])
			}
			return render.Success(os.Stdout, "Snippet %q saved", args[0])
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "description")
	cmd.Flags().StringVar(&file, "file", "", "read the statement from a file")
	return cmd
}

func newSnippetsRunCmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a saved statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := openSnippets()
			if err != nil {
				return err
			}
			s, err := sm.Get(args[0])
			if err != nil {
				return err
			}
			flags.all = true
			return runStatement(cmd, []string{s.SQL}, &flags, session.ModeQuery)
		},
	}
	cmd.Flags().BoolVar(&flags.echo, "echo", false, "print the statement before running it")
	cmd.Flags().StringVar(&flags.format, "format", "", "write results as csv or json")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "write results to a file")
	return cmd
}

func newSnippetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := openSnippets()
			if err != nil {
				return err
			}
			if err := sm.Delete(args[0]); err != nil {
				return err
			}
			return render.Success(os.Stdout, "Snippet %q deleted", args[0])
		},
	}
}
