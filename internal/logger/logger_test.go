package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterNilWithoutFile(t *testing.T) {
	if (Config{}).Writer() != nil {
		t.Fatalf("no file configured must mean no writer")
	}
}

func TestWriterRotatesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fundmgr.log")
	c := Config{File: file, MaxSizeMB: 1}
	w := c.Writer()
	if w == nil {
		t.Fatalf("expected writer")
	}
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "hello") {
		t.Fatalf("log content missing: %q", string(b))
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestColorHandlerColorsLevels(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, true))
	l.Error("broken")
	out := buf.String()
	if !strings.Contains(out, "\033[31m") {
		t.Fatalf("error output missing red escape: %q", out)
	}
	if !strings.Contains(out, "broken") {
		t.Fatalf("message missing: %q", out)
	}
}
