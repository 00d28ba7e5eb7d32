package gateway

import (
	"context"
	"net/url"
	"strconv"

	"github.com/willibrandon/pgnav/internal/models"
)

// RowsOptions are the parameters of a table rows request.
type RowsOptions struct {
	Limit      int
	Offset     int
	SortColumn string
	SortOrder  models.SortOrder
	Where      string
}

// Values encodes the options. Empty sort and filter fields are omitted.
func (o RowsOptions) Values() url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(o.Limit))
	v.Set("offset", strconv.Itoa(o.Offset))
	if o.SortColumn != "" {
		v.Set("sort_column", o.SortColumn)
		order := o.SortOrder
		if order == "" {
			order = models.SortAsc
		}
		v.Set("sort_order", string(order))
	}
	if o.Where != "" {
		v.Set("where", o.Where)
	}
	return v
}

// SSHOptions tunnels the connection through an SSH host.
type SSHOptions struct {
	Host        string
	Port        string
	User        string
	Password    string
	Key         string
	KeyPassword string
}

// ConnectOptions selects a database by URL or by bookmark.
type ConnectOptions struct {
	URL        string
	BookmarkID string
	SSH        *SSHOptions
}

// Values encodes the options as the backend's form fields.
func (o ConnectOptions) Values() url.Values {
	v := url.Values{}
	if o.URL != "" {
		v.Set("url", o.URL)
	}
	if o.BookmarkID != "" {
		v.Set("bookmark_id", o.BookmarkID)
	}
	if s := o.SSH; s != nil {
		v.Set("ssh", "true")
		v.Set("ssh_host", s.Host)
		v.Set("ssh_port", s.Port)
		v.Set("ssh_user", s.User)
		if s.Password != "" {
			v.Set("ssh_password", s.Password)
		}
		if s.Key != "" {
			v.Set("ssh_key", s.Key)
		}
		if s.KeyPassword != "" {
			v.Set("ssh_key_password", s.KeyPassword)
		}
	}
	return v
}

func tablePath(name string, suffix string) string {
	p := "/tables/" + url.PathEscape(name)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func (c *Client) Schemas(ctx context.Context) *Response {
	return c.Get(ctx, "/schemas", nil)
}

func (c *Client) Objects(ctx context.Context) *Response {
	return c.Get(ctx, "/objects", nil)
}

func (c *Client) Tables(ctx context.Context) *Response {
	return c.Get(ctx, "/tables", nil)
}

// Table fetches the structure of a relation. Materialized views are
// described through a separate backend query and need the type hint.
func (c *Client) Table(ctx context.Context, name string, kind models.ObjectKind) *Response {
	var params url.Values
	if kind == models.KindMaterializedView {
		params = url.Values{"type": {string(kind)}}
	}
	return c.Get(ctx, tablePath(name, ""), params)
}

func (c *Client) TableRows(ctx context.Context, name string, opts RowsOptions) *Response {
	return c.Get(ctx, tablePath(name, "rows"), opts.Values())
}

func (c *Client) TableIndexes(ctx context.Context, name string) *Response {
	return c.Get(ctx, tablePath(name, "indexes"), nil)
}

func (c *Client) TableConstraints(ctx context.Context, name string) *Response {
	return c.Get(ctx, tablePath(name, "constraints"), nil)
}

func (c *Client) TableInfo(ctx context.Context, name string) *Response {
	return c.Get(ctx, tablePath(name, "info"), nil)
}

// Query runs sql. A non-empty format (csv, json, xml) asks the backend for
// an export body, which is returned verbatim.
func (c *Client) Query(ctx context.Context, sql, format string) *Response {
	params := url.Values{"query": {sql}}
	if format != "" {
		params.Set("format", format)
	}
	return c.Post(ctx, "/query", params)
}

func (c *Client) Explain(ctx context.Context, sql string) *Response {
	return c.Post(ctx, "/explain", url.Values{"query": {sql}})
}

func (c *Client) Analyze(ctx context.Context, sql string) *Response {
	return c.Post(ctx, "/analyze", url.Values{"query": {sql}})
}

func (c *Client) Activity(ctx context.Context) *Response {
	return c.Get(ctx, "/activity", nil)
}

func (c *Client) History(ctx context.Context) *Response {
	return c.Get(ctx, "/history", nil)
}

func (c *Client) Bookmarks(ctx context.Context) *Response {
	return c.Get(ctx, "/bookmarks", nil)
}

func (c *Client) Connect(ctx context.Context, opts ConnectOptions) *Response {
	return c.Post(ctx, "/connect", opts.Values())
}

func (c *Client) Disconnect(ctx context.Context) *Response {
	return c.Post(ctx, "/disconnect", nil)
}

func (c *Client) SwitchDB(ctx context.Context, db string) *Response {
	return c.Post(ctx, "/switchdb", url.Values{"db": {db}})
}

func (c *Client) ConnectionInfo(ctx context.Context) *Response {
	return c.Get(ctx, "/connection", nil)
}
