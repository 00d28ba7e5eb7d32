package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/willibrandon/pgnav/internal/gateway"
	"github.com/willibrandon/pgnav/internal/history"
	"github.com/willibrandon/pgnav/internal/logger"
	"github.com/willibrandon/pgnav/internal/models"
	"github.com/willibrandon/pgnav/internal/schema"
	"github.com/willibrandon/pgnav/internal/state"
)

var (
	// ErrNoObject is returned by row commands when nothing is selected.
	ErrNoObject = errors.New("no object selected")
	// ErrBusy is returned when an execution is already in flight.
	ErrBusy = errors.New("a query is already running")
	// ErrNothingToCancel is returned when no query has been executed.
	ErrNothingToCancel = errors.New("no query to cancel")
)

// Backend is the set of API calls the controller issues. *gateway.Client
// implements it.
type Backend interface {
	Schemas(ctx context.Context) *gateway.Response
	Objects(ctx context.Context) *gateway.Response
	Table(ctx context.Context, name string, kind models.ObjectKind) *gateway.Response
	TableRows(ctx context.Context, name string, opts gateway.RowsOptions) *gateway.Response
	TableIndexes(ctx context.Context, name string) *gateway.Response
	TableConstraints(ctx context.Context, name string) *gateway.Response
	TableInfo(ctx context.Context, name string) *gateway.Response
	Query(ctx context.Context, sql, format string) *gateway.Response
	Explain(ctx context.Context, sql string) *gateway.Response
	Analyze(ctx context.Context, sql string) *gateway.Response
	Activity(ctx context.Context) *gateway.Response
	Connect(ctx context.Context, opts gateway.ConnectOptions) *gateway.Response
	Disconnect(ctx context.Context) *gateway.Response
	SwitchDB(ctx context.Context, db string) *gateway.Response
	ConnectionInfo(ctx context.Context) *gateway.Response
}

// Options configures a Controller. State and History are optional.
type Options struct {
	Backend   Backend
	State     *state.Store
	History   *history.Manager
	SessionID string
	RowsLimit int
}

// Controller owns a session Context. Each command's state transition runs
// under one mutex; query executions run outside it so they can be
// cancelled.
type Controller struct {
	mu      sync.Mutex
	backend Backend
	state   *state.Store
	history *history.Manager
	sc      *Context
	tree    *schema.Tree
	// sid mirrors sc.SessionID for readers that must not take mu: the
	// gateway asks for it while a fetch holds the lock.
	sid atomic.Value

	execMu    sync.Mutex
	execution *execution
	lastQuery string
}

type execution struct {
	query  string
	cancel context.CancelFunc
}

// New creates a Controller. With a State store the session id and rows
// limit are read from it, taking precedence over Options.
func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, errors.New("session: backend is required")
	}

	sessionID := opts.SessionID
	rowsLimit := opts.RowsLimit
	if opts.State != nil {
		id, err := opts.State.SessionID(ctx)
		if err != nil {
			return nil, err
		}
		sessionID = id
		if rowsLimit, err = opts.State.RowsLimit(ctx); err != nil {
			return nil, err
		}
	}
	if sessionID == "" {
		sessionID = newSessionID()
	}

	c := &Controller{
		backend: opts.Backend,
		state:   opts.State,
		history: opts.History,
		sc:      NewContext(sessionID, rowsLimit),
	}
	c.sid.Store(sessionID)
	return c, nil
}

// SessionID implements gateway.SessionSource.
func (c *Controller) SessionID() string {
	id, _ := c.sid.Load().(string)
	return id
}

// State returns a copy of the session context.
func (c *Controller) State() Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sc.Snapshot()
}

// Tree returns the last built schema tree, or nil.
func (c *Controller) Tree() *schema.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// SelectObject makes ref current without fetching.
func (c *Controller) SelectObject(ref models.ObjectRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sc.SelectObject(ref)
	logger.Debug("object selected", "object", ref.Identity(), "kind", ref.Kind)
}

// SetSort toggles or sets the sort and refetches rows.
func (c *Controller) SetSort(ctx context.Context, column string) (*models.ResultSet, error) {
	return c.transition(ctx, func(sc *Context) error {
		_, err := sc.SetSort(column)
		return err
	})
}

// ClearSort removes the sort and refetches rows.
func (c *Controller) ClearSort(ctx context.Context) (*models.ResultSet, error) {
	return c.transition(ctx, func(sc *Context) error {
		sc.ClearSort()
		return nil
	})
}

// SetFilter installs a filter and refetches rows. Validation errors are
// returned before any request.
func (c *Controller) SetFilter(ctx context.Context, column string, op models.FilterOperator, value string) (*models.ResultSet, error) {
	return c.transition(ctx, func(sc *Context) error {
		return sc.SetFilter(column, op, value)
	})
}

// ClearFilter removes the filter and refetches rows.
func (c *Controller) ClearFilter(ctx context.Context) (*models.ResultSet, error) {
	return c.transition(ctx, func(sc *Context) error {
		sc.ClearFilter()
		return nil
	})
}

// NextPage moves forward and refetches. At the last page it returns a
// *models.BoundaryError and issues no request.
func (c *Controller) NextPage(ctx context.Context) (*models.ResultSet, error) {
	return c.transition(ctx, func(sc *Context) error {
		return sc.NextPage()
	})
}

// PrevPage moves back and refetches.
func (c *Controller) PrevPage(ctx context.Context) (*models.ResultSet, error) {
	return c.transition(ctx, func(sc *Context) error {
		return sc.PrevPage()
	})
}

// SetRowsLimit changes and persists the page size. Rows are refetched when
// an object is selected.
func (c *Controller) SetRowsLimit(ctx context.Context, n int) (*models.ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sc.SetRowsLimit(n); err != nil {
		return nil, err
	}
	if c.state != nil {
		if err := c.state.SetRowsLimit(ctx, n); err != nil {
			logger.Warn("failed to persist rows limit", "error", err)
		}
	}
	if c.sc.Object == nil {
		return nil, nil
	}
	return c.fetchRowsLocked(ctx)
}

// BrowseOptions describe a rows view to open in one step.
type BrowseOptions struct {
	Sort   *models.SortState
	Filter *models.FilterState
	Page   int
}

// Browse selects ref with the given sort, filter and page and fetches that
// page. The page is clamped to the total reported by the first fetch, so a
// page beyond 1 costs a second request.
func (c *Controller) Browse(ctx context.Context, ref models.ObjectRef, opts BrowseOptions) (*models.ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.sc.Snapshot()
	next.SelectObject(ref)
	if opts.Sort != nil {
		if _, err := next.SetSort(opts.Sort.Column); err != nil {
			return nil, err
		}
		if opts.Sort.Order == models.SortDesc {
			next.Sort.Order = models.SortDesc
		}
	}
	if f := opts.Filter; f != nil {
		if err := next.SetFilter(f.Column, f.Operator, f.Value); err != nil {
			return nil, err
		}
	}
	*c.sc = next

	rs, err := c.fetchRowsLocked(ctx)
	if err != nil || rs.Failed() || opts.Page <= 1 {
		return rs, err
	}

	page := c.sc.Pagination.GoTo(opts.Page)
	if page.Page == c.sc.Pagination.Page {
		return rs, nil
	}
	c.sc.Pagination = page
	return c.fetchRowsLocked(ctx)
}

// FetchRows loads the current page of the selected object.
func (c *Controller) FetchRows(ctx context.Context) (*models.ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchRowsLocked(ctx)
}

// transition applies fn to a copy of the context and, when it succeeds,
// commits the copy and refetches rows. A failed fn leaves state untouched.
func (c *Controller) transition(ctx context.Context, fn func(sc *Context) error) (*models.ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sc.Object == nil {
		return nil, ErrNoObject
	}

	next := c.sc.Snapshot()
	if err := fn(&next); err != nil {
		return nil, err
	}
	*c.sc = next
	return c.fetchRowsLocked(ctx)
}

func (c *Controller) fetchRowsLocked(ctx context.Context) (*models.ResultSet, error) {
	if c.sc.Object == nil {
		return nil, ErrNoObject
	}
	opts, err := c.sc.RowsRequest()
	if err != nil {
		return nil, err
	}

	rs := gateway.DecodeResultSet(c.backend.TableRows(ctx, c.sc.Object.QualifiedName(), opts))
	c.sc.ApplyResult(rs)

	logger.Debug("rows fetched",
		"object", c.sc.Object.Identity(),
		"page", c.sc.Pagination.Page,
		"pages", c.sc.Pagination.TotalPages,
		"error", rs.Error)
	return rs, nil
}

// RefreshSchema fetches the schema list and object listing concurrently
// and rebuilds the tree.
func (c *Controller) RefreshSchema(ctx context.Context) (*schema.Tree, error) {
	var (
		names []string
		raw   schema.RawObjects
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		names, err = gateway.DecodeSchemas(c.backend.Schemas(gctx))
		if err != nil {
			return fmt.Errorf("load schemas: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		raw, err = gateway.DecodeObjects(c.backend.Objects(gctx))
		if err != nil {
			return fmt.Errorf("load objects: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn("schema refresh failed", "error", err)
		return nil, err
	}

	tree := schema.Build(names, raw)

	c.mu.Lock()
	c.tree = tree
	c.mu.Unlock()

	logger.Debug("schema refreshed", "schemas", tree.Len(), "completions", len(tree.Autocomplete))
	return tree, nil
}

// SelectTab persists the active tab.
func (c *Controller) SelectTab(ctx context.Context, tab models.Tab) error {
	if _, err := models.ParseTab(string(tab)); err != nil {
		return &models.ValidationError{Field: "tab", Reason: err.Error()}
	}
	if c.state == nil {
		return nil
	}
	return c.state.SetLastSelectedTab(ctx, tab)
}

// ResetSession starts a new session id and clears the selection.
func (c *Controller) ResetSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var id string
	var err error
	if c.state != nil {
		id, err = c.state.ResetSessionID(ctx)
		if err != nil {
			return "", err
		}
	} else {
		id = newSessionID()
	}

	c.sc.SessionID = id
	c.sid.Store(id)
	c.sc.ClearSelection()
	c.tree = nil
	logger.Info("session reset", "session_id", id)
	return id, nil
}
