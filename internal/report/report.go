package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/analyze"
)

// Outcome classifies a finished run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// HoldingResult is the per-fund slice of a run. Either Err is set or the
// computed fields are.
type HoldingResult struct {
	Code     string                  `json:"code"`
	Name     string                  `json:"name"`
	Err      error                   `json:"-"`
	ErrText  string                  `json:"error,omitempty"`
	Stale    bool                    `json:"stale,omitempty"`
	Returns  analyze.Returns         `json:"returns"`
	Trend    analyze.Trend           `json:"trend"`
	Forecast []analyze.ForecastPoint `json:"forecast,omitempty"`
}

// Failed reports whether this entry carries an error instead of metrics.
func (h HoldingResult) Failed() bool { return h.Err != nil || h.ErrText != "" }

// Totals aggregates the succeeded holdings of a run.
type Totals struct {
	Cost        decimal.Decimal `json:"cost"`
	Value       decimal.Decimal `json:"value"`
	Profit      decimal.Decimal `json:"profit"`
	ProfitRate  decimal.Decimal `json:"profit_rate"` // percent
	TodayProfit decimal.Decimal `json:"today_profit"`
}

// Run is one pipeline execution's outcome.
type Run struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Outcome    Outcome         `json:"outcome"`
	Holdings   []HoldingResult `json:"holdings"`
	Totals     Totals          `json:"totals"`
}

// FailedCount returns how many holdings in the run carry an error marker.
func (r Run) FailedCount() int {
	n := 0
	for _, h := range r.Holdings {
		if h.Failed() {
			n++
		}
	}
	return n
}

// Classify derives the run outcome from its holdings. An empty holding set
// counts as success: there was nothing to fail.
func Classify(holdings []HoldingResult) Outcome {
	if len(holdings) == 0 {
		return OutcomeSuccess
	}
	failed := 0
	for _, h := range holdings {
		if h.Failed() {
			failed++
		}
	}
	switch failed {
	case 0:
		return OutcomeSuccess
	case len(holdings):
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

var hundred = decimal.NewFromInt(100)

// CalcTotals sums cost, market value and profit over the succeeded holdings.
func CalcTotals(holdings []HoldingResult) Totals {
	var t Totals
	for _, h := range holdings {
		if h.Failed() {
			continue
		}
		t.Cost = t.Cost.Add(h.Returns.Invested)
		t.Value = t.Value.Add(h.Returns.MarketValue)
		t.Profit = t.Profit.Add(h.Returns.TotalProfit)
		t.TodayProfit = t.TodayProfit.Add(h.Returns.TodayProfit)
	}
	if t.Cost.IsPositive() {
		t.ProfitRate = t.Profit.Div(t.Cost).Mul(hundred).Round(2)
	}
	t.Cost = t.Cost.Round(2)
	t.Value = t.Value.Round(2)
	t.Profit = t.Profit.Round(2)
	t.TodayProfit = t.TodayProfit.Round(2)
	return t
}
