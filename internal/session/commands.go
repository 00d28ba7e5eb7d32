package session

import (
	"context"
	"fmt"

	"github.com/willibrandon/pgnav/internal/gateway"
	"github.com/willibrandon/pgnav/internal/models"
	"github.com/willibrandon/pgnav/internal/schema"
)

// Command is a user intent understood by Dispatch.
type Command interface {
	commandName() string
}

type (
	SelectObjectCmd struct{ Ref models.ObjectRef }
	SetSortCmd      struct{ Column string }
	ClearSortCmd    struct{}
	SetFilterCmd    struct {
		Column   string
		Operator models.FilterOperator
		Value    string
	}
	ClearFilterCmd   struct{}
	NextPageCmd      struct{}
	PrevPageCmd      struct{}
	SetRowsLimitCmd  struct{ Limit int }
	RunQueryCmd      struct{ Input QueryInput }
	ExplainQueryCmd  struct{ Input QueryInput }
	AnalyzeQueryCmd  struct{ Input QueryInput }
	RunActionCmd     struct {
		Ref     models.ObjectRef
		Action  Action
		Options ActionOptions
	}
	RefreshSchemaCmd struct{}
	CancelQueryCmd   struct{}
	ConnectCmd       struct{ Options gateway.ConnectOptions }
	DisconnectCmd    struct{}
	SwitchDBCmd      struct{ Database string }
	ResetSessionCmd  struct{}
)

func (SelectObjectCmd) commandName() string  { return "select_object" }
func (SetSortCmd) commandName() string       { return "set_sort" }
func (ClearSortCmd) commandName() string     { return "clear_sort" }
func (SetFilterCmd) commandName() string     { return "set_filter" }
func (ClearFilterCmd) commandName() string   { return "clear_filter" }
func (NextPageCmd) commandName() string      { return "next_page" }
func (PrevPageCmd) commandName() string      { return "prev_page" }
func (SetRowsLimitCmd) commandName() string  { return "set_rows_limit" }
func (RunQueryCmd) commandName() string      { return "run_query" }
func (ExplainQueryCmd) commandName() string  { return "explain_query" }
func (AnalyzeQueryCmd) commandName() string  { return "analyze_query" }
func (RunActionCmd) commandName() string     { return "run_action" }
func (RefreshSchemaCmd) commandName() string { return "refresh_schema" }
func (CancelQueryCmd) commandName() string   { return "cancel_query" }
func (ConnectCmd) commandName() string       { return "connect" }
func (DisconnectCmd) commandName() string    { return "disconnect" }
func (SwitchDBCmd) commandName() string      { return "switch_db" }
func (ResetSessionCmd) commandName() string  { return "reset_session" }

// Outcome carries whatever a command produced.
type Outcome struct {
	Result     *models.ResultSet
	Query      *QueryOutcome
	Action     *ActionResult
	Cancel     *CancelOutcome
	Tree       *schema.Tree
	Connection gateway.Info
	SessionID  string
}

// Dispatch applies cmd. Errors are validation, boundary or sentinel errors;
// backend failures are reported inside the Outcome's result.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) (*Outcome, error) {
	out := &Outcome{}
	var err error

	switch cmd := cmd.(type) {
	case SelectObjectCmd:
		c.SelectObject(cmd.Ref)
	case SetSortCmd:
		out.Result, err = c.SetSort(ctx, cmd.Column)
	case ClearSortCmd:
		out.Result, err = c.ClearSort(ctx)
	case SetFilterCmd:
		out.Result, err = c.SetFilter(ctx, cmd.Column, cmd.Operator, cmd.Value)
	case ClearFilterCmd:
		out.Result, err = c.ClearFilter(ctx)
	case NextPageCmd:
		out.Result, err = c.NextPage(ctx)
	case PrevPageCmd:
		out.Result, err = c.PrevPage(ctx)
	case SetRowsLimitCmd:
		out.Result, err = c.SetRowsLimit(ctx, cmd.Limit)
	case RunQueryCmd:
		out.Query, err = c.RunQuery(ctx, cmd.Input)
	case ExplainQueryCmd:
		out.Query, err = c.ExplainQuery(ctx, cmd.Input)
	case AnalyzeQueryCmd:
		out.Query, err = c.AnalyzeQuery(ctx, cmd.Input)
	case RunActionCmd:
		out.Action, err = c.RunAction(ctx, cmd.Ref, cmd.Action, cmd.Options)
	case RefreshSchemaCmd:
		out.Tree, err = c.RefreshSchema(ctx)
	case CancelQueryCmd:
		out.Cancel, err = c.CancelQuery(ctx)
	case ConnectCmd:
		out.Connection, err = c.Connect(ctx, cmd.Options)
	case DisconnectCmd:
		err = c.Disconnect(ctx)
	case SwitchDBCmd:
		out.Connection, err = c.SwitchDB(ctx, cmd.Database)
	case ResetSessionCmd:
		out.SessionID, err = c.ResetSession(ctx)
	default:
		return nil, fmt.Errorf("unknown command %T", cmd)
	}

	if err != nil {
		return nil, err
	}
	if out.Query != nil {
		out.Result = out.Query.Result
	}
	if out.Action != nil && out.Action.Result != nil {
		out.Result = out.Action.Result
	}
	return out, nil
}
