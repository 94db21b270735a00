package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundmgr",
			Subsystem: "report",
			Name:      "runs_total",
			Help:      "Number of report runs by outcome.",
		}, []string{"outcome"},
	)
	holdingsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fundmgr",
			Subsystem: "report",
			Name:      "holdings_failed_total",
			Help:      "Number of per-holding fetch or analysis failures.",
		},
	)
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundmgr",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Number of notification deliveries by channel and outcome.",
		}, []string{"channel", "outcome"},
	)
	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fundmgr",
			Subsystem: "report",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full report run.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{runsTotal, holdingsFailed, deliveriesTotal, runDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving the DefaultGatherer. The caller
// wires the route and runs the server.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncRun(outcome string) {
	if regOK.Load() {
		runsTotal.WithLabelValues(outcome).Inc()
	}
}

func AddHoldingsFailed(n int) {
	if regOK.Load() && n > 0 {
		holdingsFailed.Add(float64(n))
	}
}

func IncDelivery(channel string, ok bool) {
	if regOK.Load() {
		outcome := "success"
		if !ok {
			outcome = "failure"
		}
		deliveriesTotal.WithLabelValues(channel, outcome).Inc()
	}
}

func ObserveRunDuration(d time.Duration) {
	if regOK.Load() {
		runDuration.Observe(d.Seconds())
	}
}
