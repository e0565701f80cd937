package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterNilWithoutDestination(t *testing.T) {
	if w := (Config{}).Writer(); w != nil {
		t.Fatalf("expected nil writer with no destination configured")
	}
}

func TestWriterWithDirOnly(t *testing.T) {
	dir := t.TempDir()
	w := Config{Dir: dir}.Writer()
	if w == nil {
		t.Fatalf("expected a writer when Dir is set")
	}
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = w.Close()
	path := filepath.Join(dir, "pagewatch.log")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log not created at %s: %v", path, err)
	}
}

func TestWriterWithExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.log")
	w := Config{Path: path, Dir: "/ignored"}.Writer()
	if w == nil {
		t.Fatalf("expected a writer with explicit path")
	}
	_, _ = w.Write([]byte("x"))
	_ = w.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log not created at %s: %v", path, err)
	}
}

func TestSlogLevelMapping(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (Config{Level: in}).SlogLevel(); got != want {
			t.Fatalf("level %q: expected %v, got %v", in, want, got)
		}
	}
}

func TestSetupInstallsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "diag.log")
	c := Setup(Config{Path: path, Level: "warn"})
	slog.Warn("visit slot read failed", "error", "boom")
	if c != nil {
		_ = c.Close()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("expected warning to be written to the diagnostic log")
	}
}
