package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/analyze"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/datasource"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/history"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/metrics"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/notify"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/report"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still executing. Scheduled and on-demand runs never overlap.
var ErrRunInProgress = errors.New("report run already in progress")

// ErrAllFailed marks a run where no holding produced data. The report is
// still delivered so the operator hears about it.
var ErrAllFailed = errors.New("all holdings failed")

// Holding is one monitored fund position.
type Holding struct {
	Code      string
	Name      string
	CostBasis decimal.Decimal
	Amount    decimal.Decimal
}

// Pipeline produces one report run from the configured holdings: fetch each
// fund, compute metrics, assemble the report, deliver it, and record the
// run summary.
type Pipeline struct {
	src          datasource.Source
	holdings     []Holding
	channels     []notify.Channel
	sink         history.Sink
	logger       *slog.Logger
	forecastDays int
	now          func() time.Time

	running atomic.Bool
	mu      sync.Mutex
	last    *report.Run
}

type Option func(*Pipeline)

// WithHistory records each run summary in the given sink.
func WithHistory(s history.Sink) Option { return func(p *Pipeline) { p.sink = s } }

// WithForecastDays sets how many days the NAV projection covers.
func WithForecastDays(days int) Option {
	return func(p *Pipeline) {
		if days > 0 {
			p.forecastDays = days
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(src datasource.Source, holdings []Holding, channels []notify.Channel, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:          src,
		holdings:     holdings,
		channels:     channels,
		logger:       slog.Default(),
		forecastDays: 5,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Last returns the most recent finished run, if any.
func (p *Pipeline) Last() (report.Run, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return report.Run{}, false
	}
	return *p.last, true
}

// InProgress reports whether a run is currently executing.
func (p *Pipeline) InProgress() bool { return p.running.Load() }

// Run executes one full report run. A single holding failing keeps the run
// going; the failed entry appears in the report as an error marker. The
// report is delivered even when every holding fails. Concurrent calls get
// ErrRunInProgress.
func (p *Pipeline) Run(ctx context.Context) (report.Run, error) {
	if !p.running.CompareAndSwap(false, true) {
		return report.Run{}, ErrRunInProgress
	}
	defer p.running.Store(false)

	started := p.now()
	run := report.Run{
		ID:        uuid.NewString(),
		StartedAt: started,
		Holdings:  p.collect(ctx),
	}
	run.FinishedAt = p.now()
	run.Outcome = report.Classify(run.Holdings)
	run.Totals = report.CalcTotals(run.Holdings)

	metrics.IncRun(string(run.Outcome))
	metrics.AddHoldingsFailed(run.FailedCount())
	metrics.ObserveRunDuration(run.FinishedAt.Sub(run.StartedAt))

	p.logger.Info("report run finished",
		"run_id", run.ID,
		"outcome", run.Outcome,
		"holdings", len(run.Holdings),
		"failed", run.FailedCount(),
		"duration", run.FinishedAt.Sub(run.StartedAt))

	p.deliver(ctx, run)
	p.record(ctx, run)

	p.mu.Lock()
	p.last = &run
	p.mu.Unlock()

	if run.Outcome == report.OutcomeFailed && len(run.Holdings) > 0 {
		return run, ErrAllFailed
	}
	return run, nil
}

// collect fetches and analyzes every holding concurrently. Result order
// matches the holdings order.
func (p *Pipeline) collect(ctx context.Context) []report.HoldingResult {
	results := make([]report.HoldingResult, len(p.holdings))
	var wg sync.WaitGroup
	for i, h := range p.holdings {
		wg.Add(1)
		go func(i int, h Holding) {
			defer wg.Done()
			results[i] = p.evaluate(ctx, h)
		}(i, h)
	}
	wg.Wait()
	return results
}

func (p *Pipeline) evaluate(ctx context.Context, h Holding) report.HoldingResult {
	res := report.HoldingResult{Code: h.Code, Name: h.Name}
	quote, err := p.src.Fetch(ctx, h.Code)
	if err != nil {
		p.logger.Warn("holding fetch failed", "code", h.Code, "error", err)
		res.Err = err
		res.ErrText = err.Error()
		return res
	}
	if quote.Name != "" {
		res.Name = quote.Name
	}
	res.Stale = !quote.IsToday

	returns, err := analyze.CalcReturns(quote.History, h.CostBasis, h.Amount)
	if err != nil {
		p.logger.Warn("holding analysis failed", "code", h.Code, "error", err)
		res.Err = fmt.Errorf("%w: %v", datasource.ErrDataUnavailable, err)
		res.ErrText = res.Err.Error()
		return res
	}
	res.Returns = returns
	res.Trend = analyze.ClassifyTrend(quote.History)
	res.Forecast = analyze.Forecast(quote.History, p.forecastDays)
	return res
}

// deliver renders the report and pushes it through every channel. Failures
// are logged and counted but do not fail the run.
func (p *Pipeline) deliver(ctx context.Context, run report.Run) {
	if len(p.channels) == 0 {
		return
	}
	title, body := report.Render(run)
	for _, r := range notify.SendAll(ctx, p.channels, title, body, p.logger) {
		metrics.IncDelivery(r.Channel, r.Err == nil)
	}
}

// record appends the run summary to the history sink, best effort.
func (p *Pipeline) record(ctx context.Context, run report.Run) {
	if p.sink == nil {
		return
	}
	rec := history.RunRecord{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Outcome:    string(run.Outcome),
		Holdings:   len(run.Holdings),
		Failed:     run.FailedCount(),
		Error:      errSummary(run),
	}
	if err := p.sink.Append(ctx, rec); err != nil {
		p.logger.Warn("history append failed", "run_id", run.ID, "error", err)
	}
}

func errSummary(run report.Run) string {
	var parts []string
	for _, h := range run.Holdings {
		if h.Failed() {
			parts = append(parts, fmt.Sprintf("%s: %s", h.Code, h.ErrText))
		}
	}
	return strings.Join(parts, "; ")
}
