package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// ReadProblems returns the last n WARN and ERROR entries of the JSON log at
// path, oldest first. A missing file yields no entries.
func ReadProblems(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := newProblemRing(max(n, 1))
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		e, ok := parseLine(scanner.Bytes())
		if ok && e.Level >= slog.LevelWarn {
			r.add(e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	return r.all(), nil
}

func parseLine(line []byte) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, false
	}

	var e Entry
	if s, ok := raw[slog.TimeKey].(string); ok {
		e.Time, _ = time.Parse(time.RFC3339Nano, s)
	}
	if s, ok := raw[slog.LevelKey].(string); ok {
		if err := e.Level.UnmarshalText([]byte(s)); err != nil {
			return Entry{}, false
		}
	}
	e.Message, _ = raw[slog.MessageKey].(string)

	e.Attrs = make(map[string]string)
	for k, v := range raw {
		switch k {
		case slog.TimeKey, slog.LevelKey, slog.MessageKey:
			continue
		}
		e.Attrs[k] = fmt.Sprint(v)
	}
	return e, true
}
