package session

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/willibrandon/pgnav/internal/gateway"
	"github.com/willibrandon/pgnav/internal/logger"
	"github.com/willibrandon/pgnav/internal/models"
)

func newSessionID() string {
	return uuid.NewString()
}

// Connect attaches the session to a database given by URL or bookmark.
// On success the selection is cleared and the schema tree reloaded.
func (c *Controller) Connect(ctx context.Context, opts gateway.ConnectOptions) (gateway.Info, error) {
	opts.URL = strings.TrimSpace(opts.URL)
	opts.BookmarkID = strings.TrimSpace(opts.BookmarkID)
	if (opts.URL == "") == (opts.BookmarkID == "") {
		return nil, &models.ValidationError{Field: "connection", Reason: "exactly one of url or bookmark is required"}
	}
	if s := opts.SSH; s != nil && (s.Host == "" || s.User == "") {
		return nil, &models.ValidationError{Field: "ssh", Reason: "host and user are required"}
	}

	info, err := gateway.DecodeInfo(c.backend.Connect(ctx, opts))
	if err != nil {
		return nil, err
	}
	c.afterConnectionChange(ctx, info)
	return info, nil
}

// SwitchDB moves the session to another database on the same server.
func (c *Controller) SwitchDB(ctx context.Context, db string) (gateway.Info, error) {
	db = strings.TrimSpace(db)
	if db == "" {
		return nil, &models.ValidationError{Field: "db", Reason: "is required"}
	}

	info, err := gateway.DecodeInfo(c.backend.SwitchDB(ctx, db))
	if err != nil {
		return nil, err
	}
	c.afterConnectionChange(ctx, info)
	return info, nil
}

// Disconnect closes the backend connection and starts a new session.
func (c *Controller) Disconnect(ctx context.Context) error {
	resp := c.backend.Disconnect(ctx)
	if resp.Failed() {
		return &gateway.BackendError{Message: resp.Error, Kind: resp.Kind}
	}
	_, err := c.ResetSession(ctx)
	return err
}

// ConnectionInfo returns the backend's description of the connection.
func (c *Controller) ConnectionInfo(ctx context.Context) (gateway.Info, error) {
	return gateway.DecodeInfo(c.backend.ConnectionInfo(ctx))
}

func (c *Controller) afterConnectionChange(ctx context.Context, info gateway.Info) {
	c.mu.Lock()
	c.sc.ClearSelection()
	c.tree = nil
	c.mu.Unlock()

	logger.Info("connected", "database", info.CurrentDatabase())

	if _, err := c.RefreshSchema(ctx); err != nil {
		logger.Warn("schema load after connect failed", "error", err)
	}
}
