// Package gateway sends requests to the browsing API and normalizes every
// outcome into a Response. Transport failures, timeouts, cancellations and
// backend errors all come back as a Response carrying an error message;
// Call never returns a Go error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/willibrandon/pgnav/internal/logger"
)

const (
	// DefaultTimeout bounds each call when no timeout is configured.
	DefaultTimeout = 300 * time.Second
	// DefaultSessionHeader is the header the backend reads the session id from.
	DefaultSessionHeader = "x-session-id"

	// MsgRequestFailed is reported for transport failures and non-JSON errors.
	MsgRequestFailed = "request failed"
	// MsgCancelled is reported when the caller abandons a call.
	MsgCancelled = "Query cancelled"
	// MsgDeadlineExceeded is reported when the caller's own deadline
	// expires before the configured timeout.
	MsgDeadlineExceeded = "Query deadline exceeded"
)

// SessionSource supplies the session id attached to every request.
type SessionSource interface {
	SessionID() string
}

// SessionFunc adapts a function to SessionSource.
type SessionFunc func() string

// SessionID implements SessionSource.
func (f SessionFunc) SessionID() string { return f() }

// Options configures a Client.
type Options struct {
	BaseURL       string
	APIPrefix     string
	Timeout       time.Duration
	SessionHeader string
	HTTPClient    *http.Client
}

// Client issues calls against one backend.
type Client struct {
	base    *url.URL
	prefix  string
	timeout time.Duration
	header  string
	session SessionSource
	http    *http.Client
}

// New creates a Client. session may be nil, in which case no session
// header is sent.
func New(opts Options, session SessionSource) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: base URL %q must be absolute", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	header := opts.SessionHeader
	if header == "" {
		header = DefaultSessionHeader
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		base:    base,
		prefix:  "/" + strings.Trim(opts.APIPrefix, "/"),
		timeout: timeout,
		header:  header,
		session: session,
		http:    hc,
	}, nil
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// TimeoutMessage returns the error message reported when a call times out.
func (c *Client) TimeoutMessage() string {
	return "Query timeout after " + strconv.FormatFloat(c.timeout.Seconds(), 'f', -1, 64) + "s"
}

// URL returns the absolute URL of an API path. path is in escaped form, so
// segments built with url.PathEscape are sent as is.
func (c *Client) URL(path string) string {
	u := *c.base
	raw := strings.TrimSuffix(u.EscapedPath(), "/") + strings.TrimSuffix(c.prefix, "/") + "/" + strings.TrimPrefix(path, "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	u.Path, u.RawPath = decoded, raw
	return u.String()
}

// Call sends one request. GET params are encoded in the query string,
// other methods send them form-encoded.
func (c *Client) Call(ctx context.Context, method, path string, params url.Values) *Response {
	start := time.Now()
	log := logger.With("method", method, "path", path)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(callCtx, method, path, params)
	if err != nil {
		log.Warn("gateway request build failed", "error", err)
		return failure(KindTransport, MsgRequestFailed, 0)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		r := c.classify(ctx, callCtx, err)
		log.Warn("gateway call failed", "kind", r.Kind, "error", err, "duration", time.Since(start))
		return r
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r := c.classify(ctx, callCtx, err)
		log.Warn("gateway read failed", "kind", r.Kind, "status", resp.StatusCode, "error", err)
		return r
	}

	r := normalize(resp.StatusCode, resp.Header.Get("Content-Type"), body)
	if r.Failed() {
		log.Warn("gateway call returned error", "kind", r.Kind, "status", r.StatusCode, "error", r.Error, "duration", time.Since(start))
	} else {
		log.Debug("gateway call", "status", r.StatusCode, "bytes", len(body), "duration", time.Since(start))
	}
	return r
}

// Get is shorthand for Call with GET.
func (c *Client) Get(ctx context.Context, path string, params url.Values) *Response {
	return c.Call(ctx, http.MethodGet, path, params)
}

// Post is shorthand for Call with POST.
func (c *Client) Post(ctx context.Context, path string, params url.Values) *Response {
	return c.Call(ctx, http.MethodPost, path, params)
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values) (*http.Request, error) {
	target := c.URL(path)

	var body io.Reader
	if method == http.MethodGet || method == http.MethodHead {
		if len(params) > 0 {
			target += "?" + params.Encode()
		}
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if c.session != nil {
		if id := c.session.SessionID(); id != "" {
			req.Header.Set(c.header, id)
		}
	}
	return req, nil
}

// classify maps a failed round trip to timeout, cancellation or transport.
func (c *Client) classify(parent, call context.Context, err error) *Response {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return failure(KindCancelled, MsgCancelled, 0)
	case errors.Is(parent.Err(), context.DeadlineExceeded):
		return failure(KindTimeout, MsgDeadlineExceeded, 0)
	case errors.Is(call.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return failure(KindTimeout, c.TimeoutMessage(), 0)
	default:
		return failure(KindTransport, MsgRequestFailed, 0)
	}
}

// normalize turns a completed HTTP exchange into a Response.
func normalize(status int, contentType string, body []byte) *Response {
	r := &Response{StatusCode: status, ContentType: contentType, Body: body}

	msg, isJSON := errorField(body)
	if status < 200 || status > 299 {
		if msg == "" {
			r.Kind, r.Error = KindTransport, MsgRequestFailed
			if isJSON {
				r.Kind = KindBackend
			}
			return r
		}
		r.Kind, r.Error = KindBackend, msg
		return r
	}

	if msg != "" && isJSONType(contentType) {
		r.Kind, r.Error = KindBackend, msg
	}
	return r
}

// errorField extracts a top-level "error" string from a JSON object body.
func errorField(body []byte) (msg string, isJSON bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var payload struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return "", false
	}
	switch v := payload.Error.(type) {
	case string:
		return v, true
	case nil:
		return "", true
	default:
		return fmt.Sprint(v), true
	}
}

func isJSONType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
