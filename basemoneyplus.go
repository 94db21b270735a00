package basemoneyplus

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/analyze"
	cfg "github.com/lijinzhao1998/BaseMoneyPlus/internal/config"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/daemon"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/datasource"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/history"
	histfactory "github.com/lijinzhao1998/BaseMoneyPlus/internal/history/factory"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/metrics"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/notify"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/pipeline"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/report"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/schedule"
	iapi "github.com/lijinzhao1998/BaseMoneyPlus/internal/server"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Holding = pipeline.Holding

type Run = report.Run

type HoldingResult = report.HoldingResult

type Quote = datasource.Quote

type NavPoint = datasource.NavPoint

type Returns = analyze.Returns

type Trend = analyze.Trend

type ForecastPoint = analyze.ForecastPoint

type Channel = notify.Channel

type HistorySink = history.Sink

type Clock = schedule.Clock

type DaemonStatus = daemon.Status

// Sentinel errors consumers may test against.
var (
	ErrAlreadyRunning  = daemon.ErrAlreadyRunning
	ErrNotRunning      = daemon.ErrNotRunning
	ErrRunInProgress   = pipeline.ErrRunInProgress
	ErrDataUnavailable = datasource.ErrDataUnavailable
)

// Pipeline is a thin facade over internal/pipeline.Pipeline for embedding.
type Pipeline struct{ inner *pipeline.Pipeline }

// NewPipeline builds a report pipeline against the public data source.
func NewPipeline(src datasource.Source, holdings []Holding, channels []Channel, opts ...pipeline.Option) *Pipeline {
	return &Pipeline{inner: pipeline.New(src, holdings, channels, opts...)}
}

func (p *Pipeline) Run(ctx context.Context) (Run, error) { return p.inner.Run(ctx) }
func (p *Pipeline) Last() (Run, bool)                    { return p.inner.Last() }
func (p *Pipeline) InProgress() bool                     { return p.inner.InProgress() }

// WithHistory, WithForecastDays and WithLogger re-export pipeline options.
var (
	WithHistory      = pipeline.WithHistory
	WithForecastDays = pipeline.WithForecastDays
	WithLogger       = pipeline.WithLogger
)

// NewEastmoney builds the default fund data source keeping lookback days of
// history per fetch.
func NewEastmoney(lookback int, opts ...datasource.Option) datasource.Source {
	return datasource.NewEastmoney(lookback, opts...)
}

// NewScheduler fires job at the given local time every day.
func NewScheduler(at Clock, job schedule.Job, logger *slog.Logger) *schedule.Scheduler {
	return schedule.New(at, job, logger)
}

// NewController manages the daemon lifecycle around the given PID file.
func NewController(pidFile string, stopTimeout time.Duration, logger *slog.Logger) *daemon.Controller {
	return daemon.NewController(pidFile, stopTimeout, logger)
}

func LoadConfig(path string) (*cfg.FileConfig, error) { return cfg.Load(path) }

// NewHistorySink selects a sink implementation from the DSN:
// postgres:// URLs use PostgreSQL, anything else is a SQLite path.
func NewHistorySink(dsn string) (HistorySink, error) { return histfactory.NewFromDSN(dsn) }

// NewHTTPServer starts the HTTP status API bound to the given pipeline.
func NewHTTPServer(addr, basePath string, p *Pipeline, sink HistorySink) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, p.inner, sink)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
