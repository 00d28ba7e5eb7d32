package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/willibrandon/pgnav/internal/gateway"
	"github.com/willibrandon/pgnav/internal/history"
	"github.com/willibrandon/pgnav/internal/logger"
	"github.com/willibrandon/pgnav/internal/models"
	"github.com/willibrandon/pgnav/internal/statement"
)

// Mode selects how a statement is executed.
type Mode string

const (
	ModeQuery   Mode = history.ModeQuery
	ModeExplain Mode = history.ModeExplain
	ModeAnalyze Mode = history.ModeAnalyze
)

// QueryInput is the editor state a query is resolved from.
type QueryInput struct {
	Buffer    string
	Selection string
	CursorRow int
}

// QueryOutcome is the result of an execution.
type QueryOutcome struct {
	Resolution statement.Resolution
	Mode       Mode
	Result     *models.ResultSet
	Duration   time.Duration
	// SchemaRefreshed is set when a DDL statement triggered a tree rebuild.
	SchemaRefreshed bool
}

// RunQuery executes the statement under the cursor (or the selection).
func (c *Controller) RunQuery(ctx context.Context, in QueryInput) (*QueryOutcome, error) {
	return c.execute(ctx, in, ModeQuery)
}

// ExplainQuery returns the plan of the resolved statement.
func (c *Controller) ExplainQuery(ctx context.Context, in QueryInput) (*QueryOutcome, error) {
	return c.execute(ctx, in, ModeExplain)
}

// AnalyzeQuery runs the resolved statement under EXPLAIN ANALYZE.
func (c *Controller) AnalyzeQuery(ctx context.Context, in QueryInput) (*QueryOutcome, error) {
	return c.execute(ctx, in, ModeAnalyze)
}

func (c *Controller) execute(ctx context.Context, in QueryInput, mode Mode) (*QueryOutcome, error) {
	res, err := statement.Resolve(in.Buffer, in.Selection, in.CursorRow)
	if err != nil {
		return nil, err
	}

	execCtx, err := c.beginExecution(ctx, res.Text)
	if err != nil {
		return nil, err
	}
	defer c.endExecution()

	if c.state != nil {
		if err := c.state.SetLastQueryText(ctx, in.Buffer); err != nil {
			logger.Warn("failed to persist query text", "error", err)
		}
	}

	start := time.Now()
	var resp *gateway.Response
	switch mode {
	case ModeExplain:
		resp = c.backend.Explain(execCtx, res.Text)
	case ModeAnalyze:
		resp = c.backend.Analyze(execCtx, res.Text)
	default:
		resp = c.backend.Query(execCtx, res.Text, "")
	}
	rs := gateway.DecodeResultSet(resp)
	elapsed := time.Since(start)

	logger.Debug("query executed", "mode", mode, "duration", elapsed, "rows", rs.RowCount(), "error", rs.Error)

	if c.history != nil {
		c.history.Add(ctx, res.Text, string(mode), elapsed, rs.RowCount(), rs.Error)
	}

	out := &QueryOutcome{Resolution: res, Mode: mode, Result: rs, Duration: elapsed}

	// The statement may have partially applied even when the backend
	// reported an error, so the tree is revalidated either way.
	if mode == ModeQuery && IsDDL(res.Text) {
		if _, err := c.RefreshSchema(ctx); err == nil {
			out.SchemaRefreshed = true
		}
	}
	return out, nil
}

// ExportQuery runs sql and returns the backend's export body (csv, json or
// xml) verbatim. It does not count as an in-flight execution.
func (c *Controller) ExportQuery(ctx context.Context, sql, format string) *gateway.Response {
	return c.backend.Query(ctx, sql, format)
}

func (c *Controller) beginExecution(ctx context.Context, query string) (context.Context, error) {
	c.execMu.Lock()
	defer c.execMu.Unlock()

	if c.execution != nil {
		return nil, ErrBusy
	}
	execCtx, cancel := context.WithCancel(ctx)
	c.execution = &execution{query: query, cancel: cancel}
	c.lastQuery = query
	return execCtx, nil
}

func (c *Controller) endExecution() {
	c.execMu.Lock()
	defer c.execMu.Unlock()
	if c.execution != nil {
		c.execution.cancel()
		c.execution = nil
	}
}

// InFlight reports whether an execution is outstanding.
func (c *Controller) InFlight() bool {
	c.execMu.Lock()
	defer c.execMu.Unlock()
	return c.execution != nil
}

// LastQuery returns the text of the most recent execution.
func (c *Controller) LastQuery() string {
	c.execMu.Lock()
	defer c.execMu.Unlock()
	return c.lastQuery
}

// CancelOutcome reports what a cancel attempt did.
type CancelOutcome struct {
	// PIDs are the backend processes pg_cancel_backend was issued for.
	PIDs []int64
	// Aborted is set when a local in-flight call was abandoned.
	Aborted bool
	// Error is the first backend error met, if any.
	Error string
}

// CancelQuery stops the running (or most recent) query. It looks up the
// backend processes running that text in the activity listing, issues
// pg_cancel_backend for each, and abandons the local call, which then
// resolves with "Query cancelled".
func (c *Controller) CancelQuery(ctx context.Context) (*CancelOutcome, error) {
	c.execMu.Lock()
	exec := c.execution
	query := c.lastQuery
	c.execMu.Unlock()

	if exec != nil {
		query = exec.query
	}
	if query == "" {
		return nil, ErrNothingToCancel
	}

	out := c.cancelBackends(ctx, query)

	if exec != nil {
		exec.cancel()
		out.Aborted = true
	}

	logger.Info("query cancel requested", "pids", out.PIDs, "aborted", out.Aborted, "error", out.Error)
	return out, nil
}

// CancelStatement cancels the backend processes running sql without
// touching any local execution. It serves callers that did not start the
// query themselves.
func (c *Controller) CancelStatement(ctx context.Context, sql string) (*CancelOutcome, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, ErrNothingToCancel
	}
	out := c.cancelBackends(ctx, sql)
	logger.Info("statement cancel requested", "pids", out.PIDs, "error", out.Error)
	return out, nil
}

func (c *Controller) cancelBackends(ctx context.Context, query string) *CancelOutcome {
	out := &CancelOutcome{}
	activity := gateway.DecodeResultSet(c.backend.Activity(ctx))
	if activity.Failed() {
		out.Error = activity.Error
	} else {
		out.PIDs = matchingBackends(activity, query)
	}

	for _, pid := range out.PIDs {
		sql := fmt.Sprintf("SELECT pg_cancel_backend(%d)", pid)
		rs := gateway.DecodeResultSet(c.backend.Query(ctx, sql, ""))
		if rs.Failed() && out.Error == "" {
			out.Error = rs.Error
		}
	}

	return out
}

// matchingBackends returns the pids of non-idle activity rows running
// exactly text, compared by statementKey.
func matchingBackends(activity *models.ResultSet, text string) []int64 {
	pidCol := activity.ColumnIndex("pid")
	queryCol := activity.ColumnIndex("query")
	stateCol := activity.ColumnIndex("state")
	if pidCol < 0 || queryCol < 0 {
		return nil
	}

	needle := statementKey(text)
	var pids []int64
	for _, row := range activity.Rows {
		if stateCol >= 0 {
			if st, _ := row[stateCol].(string); strings.HasPrefix(st, "idle") {
				continue
			}
		}
		q, _ := row[queryCol].(string)
		if statementKey(q) != needle {
			continue
		}
		pid, err := strconv.ParseInt(fmt.Sprint(row[pidCol]), 10, 64)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// statementKey normalizes a statement for comparison with pg_stat_activity
// text: whitespace runs collapse to one space and trailing semicolons drop.
func statementKey(s string) string {
	return strings.TrimRight(collapseSpace(s), "; ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
