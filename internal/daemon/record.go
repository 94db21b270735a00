package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/detector"
)

// Record is the persisted daemon identity: the PID on the first line and a
// JSON meta line with the process start time. The start time lets readers
// reject records whose PID has been reused by an unrelated process.
type Record struct {
	PID       int       `json:"-"`
	StartUnix int64     `json:"start_unix"`
	StartedAt time.Time `json:"started_at"`
}

// Uptime returns how long the recorded process has been running.
func (r Record) Uptime(now time.Time) time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(r.StartedAt)
}

// WriteRecord persists rec to path atomically: the content is written to a
// temp file in the same directory and renamed into place, so a concurrent
// reader never observes a partial record.
func WriteRecord(path string, rec Record) error {
	if rec.PID <= 0 {
		return fmt.Errorf("invalid pid %d", rec.PID)
	}
	meta, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	content := strconv.Itoa(rec.PID) + "\n" + string(meta) + "\n"

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename record: %w", err)
	}
	return nil
}

// ReadRecord parses a record written by WriteRecord. Legacy files containing
// only a PID are accepted; their meta fields stay zero.
func ReadRecord(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	pidLine, rest, _ := strings.Cut(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return Record{}, fmt.Errorf("invalid pid in %s: %w", path, err)
	}
	rec := Record{PID: pid}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		// Keep the PID even when the meta line cannot be parsed.
		_ = json.Unmarshal([]byte(rest), &rec)
	}
	return rec, nil
}

// RemoveRecord deletes the record file. A missing file is not an error.
func RemoveRecord(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// NewSelfRecord builds a Record describing the calling process.
func NewSelfRecord() Record {
	pid := os.Getpid()
	now := time.Now()
	start := detector.ProcStartUnix(pid)
	if start == 0 {
		start = now.Unix()
	}
	return Record{PID: pid, StartUnix: start, StartedAt: now}
}

// Alive reports whether the recorded process is still running and is the same
// process that wrote the record.
func (r Record) Alive() bool {
	alive, _ := detector.PIDDetector{PID: r.PID, StartUnix: r.StartUnix}.Alive()
	return alive
}
