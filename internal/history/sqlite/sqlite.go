package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/history"
)

// DB implements history.Sink for SQLite (modernc.org/sqlite driver, CGO-free).
// DSN is a filesystem path to the database file. Use ":memory:" for in-memory.

type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS report_run(
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			outcome TEXT NOT NULL,
			holdings INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			error TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_report_run_finished ON report_run(finished_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Append(ctx context.Context, rec history.RunRecord) error {
	var errStr sql.NullString
	if rec.Error != "" {
		errStr = sql.NullString{String: rec.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_run(id, started_at, finished_at, outcome, holdings, failed, error)
		VALUES(?, ?, ?, ?, ?, ?, ?);`,
		rec.ID, rec.StartedAt.UTC(), rec.FinishedAt.UTC(), rec.Outcome, rec.Holdings, rec.Failed, errStr)
	return err
}

func (s *DB) Recent(ctx context.Context, limit int) ([]history.RunRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, outcome, holdings, failed, error
		FROM report_run
		ORDER BY finished_at DESC
		LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]history.RunRecord, error) {
	out := make([]history.RunRecord, 0)
	for rows.Next() {
		var r history.RunRecord
		var errStr sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Outcome, &r.Holdings, &r.Failed, &errStr); err != nil {
			return nil, err
		}
		r.Error = errStr.String
		out = append(out, r)
	}
	return out, rows.Err()
}
