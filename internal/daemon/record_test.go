package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteReadRecordRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fundmgr.pid")
	rec := Record{PID: 4321, StartUnix: 1700000000, StartedAt: time.Unix(1700000000, 0)}
	if err := WriteRecord(path, rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadRecord(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.PID != rec.PID || got.StartUnix != rec.StartUnix {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	// First line must be the plain-text PID for external tooling.
	b, _ := os.ReadFile(path)
	first, _, _ := strings.Cut(string(b), "\n")
	if strings.TrimSpace(first) != "4321" {
		t.Fatalf("first line must be the pid, got %q", first)
	}
}

func TestWriteRecordRejectsInvalidPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	if err := WriteRecord(path, Record{PID: 0}); err == nil {
		t.Fatalf("expected error for pid 0")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("no record file should exist after a failed write")
	}
}

func TestWriteRecordLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fundmgr.pid")
	if err := WriteRecord(path, Record{PID: 1234, StartUnix: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "fundmgr.pid" {
		t.Fatalf("expected only the record file, got %v", entries)
	}
}

func TestReadRecordLegacyPIDOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.pid")
	if err := os.WriteFile(path, []byte("9876\n"), 0o600); err != nil {
		t.Fatalf("write legacy: %v", err)
	}
	rec, err := ReadRecord(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec.PID != 9876 || rec.StartUnix != 0 {
		t.Fatalf("unexpected legacy record: %+v", rec)
	}
}

func TestReadRecordGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pid")
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadRecord(path); err == nil {
		t.Fatalf("expected error for garbage record")
	}
}

func TestRemoveRecordIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.pid")
	if err := RemoveRecord(path); err != nil {
		t.Fatalf("remove of missing record must not fail: %v", err)
	}
}

func TestNewSelfRecordAlive(t *testing.T) {
	rec := NewSelfRecord()
	if rec.PID != os.Getpid() {
		t.Fatalf("self record pid mismatch: %d", rec.PID)
	}
	if !rec.Alive() {
		t.Fatalf("self record must be alive")
	}
}
