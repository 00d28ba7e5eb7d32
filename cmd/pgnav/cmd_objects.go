package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/willibrandon/pgnav/internal/filter"
	"github.com/willibrandon/pgnav/internal/models"
	"github.com/willibrandon/pgnav/internal/render"
	"github.com/willibrandon/pgnav/internal/session"
)

// newObjectsCmd creates the objects subcommand
func newObjectsCmd() *cobra.Command {
	var expandAll bool

	cmd := &cobra.Command{
		Use:   "objects",
		Short: "Show the schema tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				tree, err := a.ctrl.RefreshSchema(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(tree)
				}
				return render.Tree(os.Stdout, tree, render.TreeOptions{ExpandAll: expandAll})
			})
		},
	}
	cmd.Flags().BoolVarP(&expandAll, "all", "a", false, "list the objects of every schema")
	return cmd
}

// newRowsCmd creates the rows subcommand
func newRowsCmd() *cobra.Command {
	var (
		sortColumn string
		desc       bool
		filterExpr string
		page       int
		limit      int
		kind       string
	)

	cmd := &cobra.Command{
		Use:   "rows <object>",
		Short: "Browse the rows of a table, view or sequence",
		Long: `Browse the rows of a relation one page at a time.

The filter is "<column> <operator> [value]" where operator is one of
equal, not_equal, greater, greater_eq, less, less_eq, like, ilike, null,
not_null.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ref, err := resolveObject(ctx, a, args[0], kind)
				if err != nil {
					return err
				}
				if limit > 0 {
					if _, err := a.ctrl.SetRowsLimit(ctx, limit); err != nil {
						return err
					}
				}

				opts := session.BrowseOptions{Page: page}
				if sortColumn != "" {
					order := models.SortAsc
					if desc {
						order = models.SortDesc
					}
					opts.Sort = &models.SortState{Column: sortColumn, Order: order}
				}
				if filterExpr != "" {
					f, err := parseFilter(filterExpr)
					if err != nil {
						return err
					}
					opts.Filter = f
				}

				rs, err := a.ctrl.Browse(ctx, ref, opts)
				if err != nil {
					return err
				}
				return printResult(rs)
			})
		},
	}
	cmd.Flags().StringVarP(&sortColumn, "sort", "s", "", "sort by column")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().StringVarP(&filterExpr, "filter", "f", "", `row filter, e.g. "age greater 30"`)
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "rows per page (persisted)")
	cmd.Flags().StringVar(&kind, "kind", "", "object kind when the name is ambiguous")
	return cmd
}

// newActionCmd creates the action subcommand
func newActionCmd() *cobra.Command {
	var (
		kind   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "action <action> <object>",
		Short: "Run an object action (structure, indexes, constraints, info, definition, export)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := session.ParseAction(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ref, err := resolveObject(ctx, a, args[1], kind)
				if err != nil {
					return err
				}
				if !session.Supports(ref.Kind, action) {
					return fmt.Errorf("%s supports: %s", ref.Kind, joinActions(session.Actions(ref.Kind)))
				}

				res, err := a.ctrl.RunAction(ctx, ref, action, session.ActionOptions{Format: format})
				if err != nil {
					return err
				}
				switch {
				case res.Body != nil:
					_, err = os.Stdout.Write(res.Body)
					return err
				case res.Info != nil:
					if jsonOutput {
						return printJSON(res.Info)
					}
					return render.KeyValues(os.Stdout, res.Info.Keys(), res.Info.String)
				default:
					return printResult(res.Result)
				}
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "object kind when the name is ambiguous")
	cmd.Flags().StringVar(&format, "format", "csv", "export format (csv, json, xml)")
	return cmd
}

// resolveObject turns "schema.name" into a reference. The kind comes from
// the flag when given, otherwise from the schema tree.
func resolveObject(ctx context.Context, a *app, name, kind string) (models.ObjectRef, error) {
	schemaName, objName := "", name
	if i := strings.Index(name, "."); i > 0 {
		schemaName, objName = name[:i], name[i+1:]
	}

	if kind != "" {
		k, err := models.ParseObjectKind(kind)
		if err != nil {
			return models.ObjectRef{}, err
		}
		if schemaName == "" {
			schemaName = "public"
		}
		return models.ObjectRef{Schema: schemaName, Name: objName, Kind: k}, nil
	}

	tree, err := a.ctrl.RefreshSchema(ctx)
	if err != nil {
		return models.ObjectRef{}, err
	}
	if ref, ok := tree.Find(name); ok {
		return ref, nil
	}
	if ref, ok := tree.FindByName(schemaName, objName); ok {
		return ref, nil
	}
	return models.ObjectRef{}, fmt.Errorf("object %q not found", name)
}

// parseFilter reads "column operator [value]". The value may contain spaces.
func parseFilter(expr string) (*models.FilterState, error) {
	fields := strings.Fields(expr)
	if len(fields) < 2 {
		return nil, fmt.Errorf("filter must be \"<column> <operator> [value]\", got %q", expr)
	}
	op, err := filter.ParseOperator(fields[1])
	if err != nil {
		return nil, err
	}
	value := ""
	if len(fields) > 2 {
		value = strings.Join(fields[2:], " ")
	}
	return &models.FilterState{Column: fields[0], Operator: op, Value: value}, nil
}

func joinActions(actions []session.Action) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// printResult writes a result set as a table or JSON. A failed result is
// printed and turned into an error so the exit status reflects it.
func printResult(rs *models.ResultSet) error {
	if jsonOutput {
		if err := printJSON(rs); err != nil {
			return err
		}
	} else if err := render.Table(os.Stdout, rs, render.TableOptions{MaxColumnWidth: maxColumnWidth()}); err != nil {
		return err
	}
	if rs.Failed() {
		return errResultFailed
	}
	return nil
}

func maxColumnWidth() int {
	if termWidth <= 0 {
		return 0
	}
	return max(16, termWidth/3)
}
