package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestProblemRing_Wraps(t *testing.T) {
	r := newProblemRing(3)
	for i := 0; i < 5; i++ {
		r.add(Entry{Message: string(rune('a' + i))})
	}

	got := r.all()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Message != "c" || got[2].Message != "e" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestInitLogger_CapturesWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgnav.log")
	InitLogger(LevelInfo, path)
	defer Close()

	before := len(RecentProblems())
	Info("ignored by ring")
	With("path", "/query").Warn("request failed", "status", 502)

	problems := RecentProblems()
	if len(problems) != before+1 {
		t.Fatalf("expected %d problems, got %d", before+1, len(problems))
	}
	last := problems[len(problems)-1]
	if last.Level != slog.LevelWarn || last.Attrs["path"] != "/query" || last.Attrs["status"] != "502" {
		t.Errorf("unexpected entry: %+v", last)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"request failed"`) {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestEntry_Format(t *testing.T) {
	e := Entry{
		Time:    time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   slog.LevelError,
		Message: "boom",
		Attrs:   map[string]string{"b": "2", "a": "1"},
	}
	if got := e.Format(); got != "15:04:05 ERROR boom a=1 b=2" {
		t.Errorf("Format() = %q", got)
	}
}

func TestReadProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgnav.log")
	content := strings.Join([]string{
		`{"time":"2024-01-02T15:04:05Z","level":"INFO","msg":"connected"}`,
		`{"time":"2024-01-02T15:04:06Z","level":"WARN","msg":"request failed","path":"/query","status":400}`,
		`not json`,
		`{"time":"2024-01-02T15:04:07Z","level":"ERROR","msg":"boom"}`,
		`{"time":"2024-01-02T15:04:08Z","level":"WARN","msg":"slow"}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadProblems(path, 2)
	if err != nil {
		t.Fatalf("ReadProblems: %v", err)
	}
	if len(got) != 2 || got[0].Message != "boom" || got[1].Message != "slow" {
		t.Fatalf("unexpected entries: %+v", got)
	}

	all, _ := ReadProblems(path, 10)
	if len(all) != 3 || all[0].Attrs["status"] != "400" || all[0].Level != slog.LevelWarn {
		t.Errorf("unexpected first entry: %+v", all[0])
	}

	missing, err := ReadProblems(filepath.Join(t.TempDir(), "none.log"), 5)
	if err != nil || len(missing) != 0 {
		t.Errorf("expected no entries for missing file, got %v, %v", missing, err)
	}
}
