// Package logger provides the process-wide structured logger. Entries are
// written as JSON to a rotating file; recent warnings and errors are also
// kept in memory so the CLI can show the last failed requests.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry is a captured WARN or ERROR record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Format renders the entry on one line.
func (e Entry) Format() string {
	line := fmt.Sprintf("%s %-5s %s", e.Time.Format("15:04:05"), e.Level.String(), e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		line += fmt.Sprintf(" %s=%s", k, e.Attrs[k])
	}
	return line
}

// problemRing keeps the last N problem entries.
type problemRing struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
}

func newProblemRing(size int) *problemRing {
	return &problemRing{entries: make([]Entry, size)}
}

func (r *problemRing) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.head] = e
	r.head = (r.head + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
}

func (r *problemRing) all() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	size := len(r.entries)
	out := make([]Entry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.head-r.count+i+size)%size]
	}
	return out
}

// captureHandler forwards to inner and copies WARN+ records into the ring.
type captureHandler struct {
	inner slog.Handler
	ring  *problemRing
	attrs []slog.Attr
}

func (h *captureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		attrs := make(map[string]string)
		for _, a := range h.attrs {
			attrs[a.Key] = a.Value.String()
		}
		r.Attrs(func(a slog.Attr) bool {
			attrs[a.Key] = a.Value.String()
			return true
		})
		h.ring.add(Entry{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: attrs})
	}
	return h.inner.Handle(ctx, r)
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &captureHandler{inner: h.inner.WithAttrs(attrs), ring: h.ring, attrs: merged}
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	return &captureHandler{inner: h.inner.WithGroup(name), ring: h.ring, attrs: h.attrs}
}

var (
	// Log is the global structured logger
	Log *slog.Logger
	// LogPath is the path of the current log file
	LogPath string

	writer *lumberjack.Logger
	ring   = newProblemRing(50)
)

// Level is the minimum level written to the log.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultPath returns ~/.config/pgnav/pgnav.log.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "pgnav", "pgnav.log")
}

// InitLogger sets up the global logger at level, writing to logPath.
// An empty path uses DefaultPath.
func InitLogger(level Level, logPath string) {
	if logPath == "" {
		logPath = DefaultPath()
	}
	_ = os.MkdirAll(filepath.Dir(logPath), 0755)
	LogPath = logPath

	writer = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	}

	handler := &captureHandler{
		inner: slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level.slog()}),
		ring:  ring,
	}
	Log = slog.New(handler)
	slog.SetDefault(Log)
}

// Close closes the log file.
func Close() {
	if writer != nil {
		writer.Close()
	}
}

func get() *slog.Logger {
	if Log != nil {
		return Log
	}
	return slog.Default()
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// RecentProblems returns the captured WARN and ERROR entries, oldest first.
func RecentProblems() []Entry {
	return ring.all()
}
