package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/pgnav/internal/backendtest"
	"github.com/willibrandon/pgnav/internal/gateway"
	"github.com/willibrandon/pgnav/internal/history"
	"github.com/willibrandon/pgnav/internal/models"
	"github.com/willibrandon/pgnav/internal/state"
	"github.com/willibrandon/pgnav/internal/storage/sqlite"
)

type fixture struct {
	srv     *backendtest.Server
	ctrl    *Controller
	state   *state.Store
	history *history.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := backendtest.New()
	t.Cleanup(srv.Close)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "pgnav.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	st := state.New(sqlite.NewStateStore(db), 100)
	hist := history.NewManager(ctx, db, 100)

	f := &fixture{srv: srv, state: st, history: hist}

	var ctrl *Controller
	client, err := gateway.New(gateway.Options{
		BaseURL:   srv.URL,
		APIPrefix: "/api",
		Timeout:   5 * time.Second,
	}, gateway.SessionFunc(func() string { return ctrl.SessionID() }))
	require.NoError(t, err)

	ctrl, err = New(ctx, Options{Backend: client, State: st, History: hist})
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

func seedUsers(srv *backendtest.Server, n int) {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{i + 1, "user" + strings.Repeat("x", i%3)}
	}
	srv.AddTable("public.users", &backendtest.Table{Columns: []string{"id", "name"}, Rows: rows})
	srv.AddObject("public", "table", "users")
}

func TestController_PaginationScenario(t *testing.T) {
	f := newFixture(t)
	seedUsers(f.srv, 250)
	ctx := context.Background()

	res, err := f.ctrl.RunAction(ctx, usersRef(), ActionRows, ActionOptions{})
	require.NoError(t, err)
	require.False(t, res.Result.Failed(), res.Result.Error)
	assert.Len(t, res.Result.Rows, 100)

	req, ok := f.srv.LastRequest("/tables/public.users/rows")
	require.True(t, ok)
	assert.Equal(t, "100", req.Params.Get("limit"))
	assert.Equal(t, "0", req.Params.Get("offset"))
	assert.Equal(t, f.ctrl.SessionID(), req.SessionID)

	sc := f.ctrl.State()
	assert.Equal(t, 1, sc.Pagination.Page)
	assert.Equal(t, 3, sc.Pagination.TotalPages)
	assert.Equal(t, 250, sc.Pagination.TotalRows)

	rs, err := f.ctrl.NextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.ctrl.State().Pagination.Page)
	req, _ = f.srv.LastRequest("/tables/public.users/rows")
	assert.Equal(t, "100", req.Params.Get("offset"))
	assert.Equal(t, "101", fmt.Sprint(rs.Rows[0][0]))

	_, err = f.ctrl.NextPage(ctx)
	require.NoError(t, err)

	before := len(f.srv.Requests())
	_, err = f.ctrl.NextPage(ctx)
	var berr *models.BoundaryError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 3, f.ctrl.State().Pagination.Page)
	assert.Len(t, f.srv.Requests(), before, "a boundary move must not hit the backend")
}

func TestController_SortAndFilterRefetch(t *testing.T) {
	f := newFixture(t)
	seedUsers(f.srv, 250)
	ctx := context.Background()

	_, err := f.ctrl.RunAction(ctx, usersRef(), ActionRows, ActionOptions{})
	require.NoError(t, err)
	_, err = f.ctrl.NextPage(ctx)
	require.NoError(t, err)

	_, err = f.ctrl.SetSort(ctx, "id")
	require.NoError(t, err)
	rs, err := f.ctrl.SetSort(ctx, "id")
	require.NoError(t, err)
	require.False(t, rs.Failed(), rs.Error)

	req, _ := f.srv.LastRequest("/tables/public.users/rows")
	assert.Equal(t, "id", req.Params.Get("sort_column"))
	assert.Equal(t, "DESC", req.Params.Get("sort_order"))
	assert.Equal(t, "0", req.Params.Get("offset"))
	assert.Equal(t, 1, f.ctrl.State().Pagination.Page)

	before := len(f.srv.Requests())
	_, err = f.ctrl.SetFilter(ctx, "age", models.OpGreater, "")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, f.srv.Requests(), before)
	assert.Nil(t, f.ctrl.State().Filter)

	_, err = f.ctrl.SetFilter(ctx, "id", models.OpGreater, "10")
	require.NoError(t, err)
	req, _ = f.srv.LastRequest("/tables/public.users/rows")
	assert.Equal(t, "id > '10'", req.Params.Get("where"))

	_, err = f.ctrl.ClearFilter(ctx)
	require.NoError(t, err)
	req, _ = f.srv.LastRequest("/tables/public.users/rows")
	assert.Empty(t, req.Params.Get("where"))
}

func TestController_RowCommandsNeedObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.NextPage(ctx)
	assert.ErrorIs(t, err, ErrNoObject)
	_, err = f.ctrl.SetSort(ctx, "id")
	assert.ErrorIs(t, err, ErrNoObject)
	assert.Empty(t, f.srv.Requests())
}

func TestController_SetRowsLimitPersists(t *testing.T) {
	f := newFixture(t)
	seedUsers(f.srv, 250)
	ctx := context.Background()

	_, err := f.ctrl.RunAction(ctx, usersRef(), ActionRows, ActionOptions{})
	require.NoError(t, err)

	rs, err := f.ctrl.SetRowsLimit(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 50)
	assert.Equal(t, 5, f.ctrl.State().Pagination.TotalPages)

	n, err := f.state.RowsLimit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	_, err = f.ctrl.SetRowsLimit(ctx, 0)
	assert.Error(t, err)
}

func TestController_RunQueryRecordsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buffer := "select 1;\n\nselect 2;"
	out, err := f.ctrl.RunQuery(ctx, QueryInput{Buffer: buffer, CursorRow: 2})
	require.NoError(t, err)
	assert.Equal(t, "select 2;", out.Resolution.Text)
	assert.False(t, out.Result.Failed())
	assert.False(t, out.SchemaRefreshed)
	assert.Equal(t, []string{"select 2;"}, f.srv.Queries())

	assert.Equal(t, 1, f.history.Len())
	assert.Equal(t, "select 2;", f.history.Previous())

	saved, err := f.state.LastQueryText(ctx)
	require.NoError(t, err)
	assert.Equal(t, buffer, saved)
	assert.Equal(t, "select 2;", f.ctrl.LastQuery())
}

func TestController_ExplainAndAnalyze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.ExplainQuery(ctx, QueryInput{Buffer: "select 1"})
	require.NoError(t, err)
	_, err = f.ctrl.AnalyzeQuery(ctx, QueryInput{Buffer: "select 1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"EXPLAIN select 1", "EXPLAIN ANALYZE select 1"}, f.srv.Queries())
}

func TestController_EmptyBufferIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.RunQuery(context.Background(), QueryInput{Buffer: "  \n "})
	assert.Error(t, err)
	assert.Empty(t, f.srv.Requests())
}

func TestController_DDLRefreshesSchema(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.SetSchemas("public", "sales")
	f.srv.AddObject("sales", "table", "orders")

	out, err := f.ctrl.RunQuery(ctx, QueryInput{Buffer: "create table sales.orders (id int)"})
	require.NoError(t, err)
	assert.True(t, out.SchemaRefreshed)
	require.NotNil(t, f.ctrl.Tree())
	assert.Equal(t, []string{"public", "sales"}, f.ctrl.Tree().Schemas())

	f.srv.Fail("/query", `relation "orders" already exists`)
	out, err = f.ctrl.RunQuery(ctx, QueryInput{Buffer: "create table sales.orders (id int)"})
	require.NoError(t, err)
	assert.True(t, out.Result.Failed())
	assert.Equal(t, `relation "orders" already exists`, out.Result.Error)
	assert.True(t, out.SchemaRefreshed)

	out, err = f.ctrl.RunQuery(ctx, QueryInput{Buffer: "select 1"})
	require.NoError(t, err)
	assert.False(t, out.SchemaRefreshed)
}

func TestController_CancelQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slow := "select pg_sleep(30)"
	f.srv.DelayQuery("pg_sleep", 10*time.Second)
	f.srv.SetActivity(
		[]any{101, "idle", slow},
		[]any{4242, "active", slow},
		[]any{555, "active", "select 1"},
	)

	done := make(chan *QueryOutcome, 1)
	go func() {
		out, err := f.ctrl.RunQuery(ctx, QueryInput{Buffer: slow})
		assert.NoError(t, err)
		done <- out
	}()

	require.Eventually(t, f.ctrl.InFlight, 2*time.Second, 10*time.Millisecond)

	_, err := f.ctrl.RunQuery(ctx, QueryInput{Buffer: "select 1"})
	assert.ErrorIs(t, err, ErrBusy)

	cancelled, err := f.ctrl.CancelQuery(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{4242}, cancelled.PIDs)
	assert.True(t, cancelled.Aborted)
	assert.Empty(t, cancelled.Error)
	assert.Contains(t, f.srv.Queries(), "SELECT pg_cancel_backend(4242)")

	select {
	case out := <-done:
		require.NotNil(t, out)
		assert.Equal(t, gateway.MsgCancelled, out.Result.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("query did not resolve after cancel")
	}
	assert.False(t, f.ctrl.InFlight())
}

func TestController_CancelWithoutQuery(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.CancelQuery(context.Background())
	assert.ErrorIs(t, err, ErrNothingToCancel)
}

func TestController_ConnectionLifecycle(t *testing.T) {
	f := newFixture(t)
	seedUsers(f.srv, 5)
	ctx := context.Background()

	_, err := f.ctrl.Connect(ctx, gateway.ConnectOptions{})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.ctrl.Connect(ctx, gateway.ConnectOptions{URL: "postgres://a@h/db", BookmarkID: "local"})
	require.ErrorAs(t, err, &verr)

	_, err = f.ctrl.Connect(ctx, gateway.ConnectOptions{URL: "postgres://a@h/db", SSH: &gateway.SSHOptions{Host: "bastion"}})
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, f.srv.Requests())

	info, err := f.ctrl.Connect(ctx, gateway.ConnectOptions{URL: "postgres://postgres@localhost/shop"})
	require.NoError(t, err)
	assert.Equal(t, "shop", info.CurrentDatabase())
	require.NotNil(t, f.ctrl.Tree())

	_, err = f.ctrl.RunAction(ctx, usersRef(), ActionRows, ActionOptions{})
	require.NoError(t, err)

	info, err = f.ctrl.SwitchDB(ctx, "analytics")
	require.NoError(t, err)
	assert.Equal(t, "analytics", info.CurrentDatabase())
	assert.Equal(t, "analytics", f.srv.Database())
	assert.Nil(t, f.ctrl.State().Object)

	_, err = f.ctrl.SwitchDB(ctx, " ")
	require.ErrorAs(t, err, &verr)

	info, err = f.ctrl.ConnectionInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "analytics", info.CurrentDatabase())

	before := f.ctrl.SessionID()
	require.NoError(t, f.ctrl.Disconnect(ctx))
	assert.NotEqual(t, before, f.ctrl.SessionID())

	stored, err := f.state.SessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.ctrl.SessionID(), stored)

	_, err = f.ctrl.ConnectionInfo(ctx)
	var berr *gateway.BackendError
	require.ErrorAs(t, err, &berr)
	assert.ErrorIs(t, err, gateway.ErrNotConnected)
}

func TestController_SessionPersistsAcrossRestarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	again, err := New(ctx, Options{Backend: f.ctrl.backend, State: f.state})
	require.NoError(t, err)
	assert.Equal(t, f.ctrl.SessionID(), again.SessionID())
}

func TestController_SelectTab(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.SelectTab(ctx, models.TabStructure))
	tab, err := f.state.LastSelectedTab(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TabStructure, tab)

	var verr *models.ValidationError
	assert.ErrorAs(t, f.ctrl.SelectTab(ctx, models.Tab("bogus")), &verr)
}

func TestController_Dispatch(t *testing.T) {
	f := newFixture(t)
	seedUsers(f.srv, 250)
	ctx := context.Background()

	out, err := f.ctrl.Dispatch(ctx, RunActionCmd{Ref: usersRef(), Action: ActionRows})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Len(t, out.Result.Rows, 100)

	out, err = f.ctrl.Dispatch(ctx, NextPageCmd{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.ctrl.State().Pagination.Page)
	assert.NotNil(t, out.Result)

	out, err = f.ctrl.Dispatch(ctx, RunQueryCmd{Input: QueryInput{Buffer: "select 1"}})
	require.NoError(t, err)
	require.NotNil(t, out.Query)
	assert.Same(t, out.Query.Result, out.Result)

	out, err = f.ctrl.Dispatch(ctx, RefreshSchemaCmd{})
	require.NoError(t, err)
	assert.NotNil(t, out.Tree)

	_, err = f.ctrl.Dispatch(ctx, SetSortCmd{})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)

	out, err = f.ctrl.Dispatch(ctx, ResetSessionCmd{})
	require.NoError(t, err)
	assert.Equal(t, f.ctrl.SessionID(), out.SessionID)
}

func TestController_Browse(t *testing.T) {
	f := newFixture(t)
	seedUsers(f.srv, 250)
	ctx := context.Background()

	rs, err := f.ctrl.Browse(ctx, usersRef(), BrowseOptions{
		Sort: &models.SortState{Column: "id", Order: models.SortDesc},
		Page: 9,
	})
	require.NoError(t, err)
	require.False(t, rs.Failed(), rs.Error)

	sc := f.ctrl.State()
	assert.Equal(t, 3, sc.Pagination.Page)
	req, _ := f.srv.LastRequest("/tables/public.users/rows")
	assert.Equal(t, "200", req.Params.Get("offset"))
	assert.Equal(t, "DESC", req.Params.Get("sort_order"))
	assert.Equal(t, "50", fmt.Sprint(rs.Rows[0][0]))

	_, err = f.ctrl.Browse(ctx, usersRef(), BrowseOptions{
		Filter: &models.FilterState{Column: "id", Operator: models.OpLess},
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 3, f.ctrl.State().Pagination.Page)
}

func TestController_CancelStatement(t *testing.T) {
	f := newFixture(t)
	f.srv.SetActivity([]any{77, "active", "select   count(*)\nfrom big"})

	out, err := f.ctrl.CancelStatement(context.Background(), "select count(*) from big")
	require.NoError(t, err)
	assert.Equal(t, []int64{77}, out.PIDs)
	assert.False(t, out.Aborted)
	assert.Equal(t, []string{"SELECT pg_cancel_backend(77)"}, f.srv.Queries())

	_, err = f.ctrl.CancelStatement(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNothingToCancel)
}

func TestController_CancelStatementMatchesWholeText(t *testing.T) {
	f := newFixture(t)
	f.srv.SetActivity(
		[]any{900, "active", "select 1 as n, * from orders join big_report using (id)"},
		[]any{901, "active", "select 1;"},
		[]any{902, "idle", "select 1"},
		[]any{903, "active", "SELECT 1"},
	)

	out, err := f.ctrl.CancelStatement(context.Background(), "select 1")
	require.NoError(t, err)
	assert.Equal(t, []int64{901}, out.PIDs)
	assert.Equal(t, []string{"SELECT pg_cancel_backend(901)"}, f.srv.Queries())
}
