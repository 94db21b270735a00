package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/history"
)

// DB implements history.Sink on PostgreSQL through the pgx stdlib driver.

type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS report_run(
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			outcome TEXT NOT NULL,
			holdings INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			error TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_report_run_finished ON report_run(finished_at);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) Append(ctx context.Context, rec history.RunRecord) error {
	var errStr sql.NullString
	if rec.Error != "" {
		errStr = sql.NullString{String: rec.Error, Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO report_run(id, started_at, finished_at, outcome, holdings, failed, error)
		VALUES($1,$2,$3,$4,$5,$6,$7);`,
		rec.ID, rec.StartedAt.UTC(), rec.FinishedAt.UTC(), rec.Outcome, rec.Holdings, rec.Failed, errStr)
	return err
}

func (p *DB) Recent(ctx context.Context, limit int) ([]history.RunRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, outcome, holdings, failed, error
		FROM report_run
		ORDER BY finished_at DESC
		LIMIT $1;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
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
