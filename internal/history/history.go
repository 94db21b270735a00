package history

import (
	"context"
	"time"
)

// RunRecord is the persisted summary of one report run. The full report
// body is not stored; logs carry that.
type RunRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Holdings   int       `json:"holdings"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

// Sink persists run summaries. Implementations are selected by DSN via the
// factory subpackage.
type Sink interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, rec RunRecord) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}
