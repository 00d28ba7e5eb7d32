package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/willibrandon/pgnav/internal/config"
	"github.com/willibrandon/pgnav/internal/gateway"
	"github.com/willibrandon/pgnav/internal/history"
	"github.com/willibrandon/pgnav/internal/logger"
	"github.com/willibrandon/pgnav/internal/session"
	"github.com/willibrandon/pgnav/internal/state"
	"github.com/willibrandon/pgnav/internal/storage/sqlite"
)

// app is the wired engine for one invocation.
type app struct {
	cfg     *config.Config
	db      *sqlite.DB
	state   *state.Store
	history *history.Manager
	client  *gateway.Client
	ctrl    *session.Controller
}

// termWidth is the output width used for wrapping; 0 when not a terminal.
var termWidth int

func setupOutput(cmd *cobra.Command, args []string) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		color.NoColor = true
		return nil
	}
	if w, _, err := term.GetSize(fd); err == nil {
		termWidth = w
	}
	return nil
}

// openApp loads configuration and wires storage, gateway and controller.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	level := logger.LevelInfo
	if debug || cfg.Debug {
		level = logger.LevelDebug
	}
	logger.InitLogger(level, cfg.LogFile)
	logger.Debug("pgnav starting", "version", version, "server", cfg.Server.URL)

	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		state:   state.New(sqlite.NewStateStore(db), cfg.Client.RowsLimit),
		history: history.NewManager(ctx, db, sqlite.MaxHistoryEntries),
	}

	// The controller owns the session id; the client reads it per request.
	a.client, err = gateway.New(gateway.Options{
		BaseURL:       cfg.Server.URL,
		APIPrefix:     cfg.Server.APIPrefix,
		Timeout:       cfg.Server.Timeout,
		SessionHeader: cfg.Server.SessionHeader,
	}, gateway.SessionFunc(func() string { return a.ctrl.SessionID() }))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.ctrl, err = session.New(ctx, session.Options{
		Backend: a.client,
		State:   a.state,
		History: a.history,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the database and log file.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("failed to close state database", "error", err)
		}
	}
	logger.Close()
}

// withApp runs fn with a wired app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		if errors.Is(err, gateway.ErrNotConnected) {
			err = fmt.Errorf("%w; run 'pgnav connect <url>' first", err)
		}
		if debug {
			for _, e := range logger.RecentProblems() {
				fmt.Fprintln(os.Stderr, e.Format())
			}
		}
		return err
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	return nil
}
