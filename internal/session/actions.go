package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/willibrandon/pgnav/internal/gateway"
	"github.com/willibrandon/pgnav/internal/models"
)

// ErrUnsupportedAction is returned for an action the object kind lacks.
var ErrUnsupportedAction = errors.New("action not supported for object kind")

// Action is an operation offered on a schema object.
type Action string

const (
	ActionRows        Action = "rows"
	ActionStructure   Action = "structure"
	ActionIndexes     Action = "indexes"
	ActionConstraints Action = "constraints"
	ActionInfo        Action = "info"
	ActionDefinition  Action = "definition"
	ActionExport      Action = "export"
)

// ParseAction converts s into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionRows, ActionStructure, ActionIndexes, ActionConstraints,
		ActionInfo, ActionDefinition, ActionExport:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// ActionOptions carries per-action parameters.
type ActionOptions struct {
	// Format is the export format (csv, json, xml); default csv.
	Format string
}

// ActionResult is the outcome of RunAction. Exactly one of Result, Info or
// Body is set.
type ActionResult struct {
	Action      Action
	Object      models.ObjectRef
	Result      *models.ResultSet
	Info        gateway.Info
	Body        []byte
	ContentType string
}

type actionHandler func(ctx context.Context, c *Controller, ref models.ObjectRef, opts ActionOptions) (*ActionResult, error)

type capability struct {
	kind   models.ObjectKind
	action Action
}

var capabilities = map[capability]actionHandler{}

func register(h actionHandler, action Action, kinds ...models.ObjectKind) {
	for _, k := range kinds {
		capabilities[capability{k, action}] = h
	}
}

func init() {
	register(rowsAction, ActionRows,
		models.KindTable, models.KindView, models.KindMaterializedView, models.KindSequence)
	register(structureAction, ActionStructure,
		models.KindTable, models.KindView, models.KindMaterializedView)
	register(resultAction(ActionIndexes, Backend.TableIndexes), ActionIndexes,
		models.KindTable, models.KindMaterializedView)
	register(resultAction(ActionConstraints, Backend.TableConstraints), ActionConstraints,
		models.KindTable)
	register(infoAction, ActionInfo,
		models.KindTable, models.KindMaterializedView)
	register(definitionAction, ActionDefinition,
		models.KindView, models.KindMaterializedView, models.KindFunction)
	register(exportAction, ActionExport,
		models.KindTable, models.KindView, models.KindMaterializedView)
}

// Actions lists the actions available for kind, sorted.
func Actions(kind models.ObjectKind) []Action {
	var out []Action
	for k := range capabilities {
		if k.kind == kind {
			out = append(out, k.action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Supports reports whether kind offers action.
func Supports(kind models.ObjectKind, action Action) bool {
	_, ok := capabilities[capability{kind, action}]
	return ok
}

// RunAction performs action on ref. The rows action selects ref (resetting
// paging when it differs from the current object) and fetches the first
// page.
func (c *Controller) RunAction(ctx context.Context, ref models.ObjectRef, action Action, opts ActionOptions) (*ActionResult, error) {
	h, ok := capabilities[capability{ref.Kind, action}]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action, ref.Kind)
	}
	return h(ctx, c, ref, opts)
}

func rowsAction(ctx context.Context, c *Controller, ref models.ObjectRef, _ ActionOptions) (*ActionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sc.Object == nil || c.sc.Object.Identity() != ref.Identity() {
		c.sc.SelectObject(ref)
	}
	rs, err := c.fetchRowsLocked(ctx)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Action: ActionRows, Object: ref, Result: rs}, nil
}

func structureAction(ctx context.Context, c *Controller, ref models.ObjectRef, _ ActionOptions) (*ActionResult, error) {
	rs := gateway.DecodeResultSet(c.backend.Table(ctx, ref.QualifiedName(), ref.Kind))
	return &ActionResult{Action: ActionStructure, Object: ref, Result: rs}, nil
}

func resultAction(action Action, call func(Backend, context.Context, string) *gateway.Response) actionHandler {
	return func(ctx context.Context, c *Controller, ref models.ObjectRef, _ ActionOptions) (*ActionResult, error) {
		rs := gateway.DecodeResultSet(call(c.backend, ctx, ref.QualifiedName()))
		return &ActionResult{Action: action, Object: ref, Result: rs}, nil
	}
}

func infoAction(ctx context.Context, c *Controller, ref models.ObjectRef, _ ActionOptions) (*ActionResult, error) {
	info, err := gateway.DecodeInfo(c.backend.TableInfo(ctx, ref.QualifiedName()))
	if err != nil {
		return nil, err
	}
	return &ActionResult{Action: ActionInfo, Object: ref, Info: info}, nil
}

func definitionAction(ctx context.Context, c *Controller, ref models.ObjectRef, _ ActionOptions) (*ActionResult, error) {
	sql := DefinitionQuery(ref)
	rs := gateway.DecodeResultSet(c.backend.Query(ctx, sql, ""))
	return &ActionResult{Action: ActionDefinition, Object: ref, Result: rs}, nil
}

func exportAction(ctx context.Context, c *Controller, ref models.ObjectRef, opts ActionOptions) (*ActionResult, error) {
	format := opts.Format
	if format == "" {
		format = "csv"
	}
	resp := c.backend.Query(ctx, "SELECT * FROM "+QualifiedIdent(ref), format)
	if resp.Failed() {
		return &ActionResult{Action: ActionExport, Object: ref, Result: models.ErrorResult(resp.Error)}, nil
	}
	return &ActionResult{Action: ActionExport, Object: ref, Body: resp.Body, ContentType: resp.ContentType}, nil
}

// QualifiedIdent quotes ref as "schema"."name".
func QualifiedIdent(ref models.ObjectRef) string {
	if ref.Schema == "" {
		return pgx.Identifier{ref.Name}.Sanitize()
	}
	return pgx.Identifier{ref.Schema, ref.Name}.Sanitize()
}

// DefinitionQuery returns the SQL that fetches the source of a view,
// materialized view or function. Functions are addressed by oid when the
// backend supplied a numeric id, otherwise by signature.
func DefinitionQuery(ref models.ObjectRef) string {
	if ref.Kind == models.KindFunction {
		id := ref.Identity()
		if isDigits(id) {
			return fmt.Sprintf("SELECT pg_get_functiondef(%s::oid) AS definition", id)
		}
		return fmt.Sprintf("SELECT pg_get_functiondef(%s::regprocedure) AS definition", quoteLiteral(id))
	}
	return fmt.Sprintf("SELECT pg_get_viewdef(%s::regclass, true) AS definition", quoteLiteral(QualifiedIdent(ref)))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
