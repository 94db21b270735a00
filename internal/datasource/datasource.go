package datasource

import (
	"context"
	"errors"
)

// ErrDataUnavailable marks a per-fund fetch or parse failure. The pipeline
// records it against the single fund and keeps going.
var ErrDataUnavailable = errors.New("fund data unavailable")

// NavPoint is one day's net asset value for a fund.
type NavPoint struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	NAV        float64 `json:"nav"`
	ChangeRate float64 `json:"change_rate"` // percent vs previous day
}

// Quote is the fetch result for one fund: the latest NAV plus the recent
// history in chronological order (oldest first).
type Quote struct {
	Code    string     `json:"code"`
	Name    string     `json:"name,omitempty"`
	Latest  NavPoint   `json:"latest"`
	History []NavPoint `json:"history"`
	// IsToday reports whether Latest is today's official NAV rather than a
	// previous trading day's close.
	IsToday bool `json:"is_today"`
}

// Source fetches fund value series. Implementations must be safe for
// concurrent use; the pipeline fetches holdings in parallel.
type Source interface {
	Fetch(ctx context.Context, code string) (*Quote, error)
}
