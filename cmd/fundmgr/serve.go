package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/config"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/daemon"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/datasource"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/history"
	histfactory "github.com/lijinzhao1998/BaseMoneyPlus/internal/history/factory"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/logger"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/metrics"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/pipeline"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/report"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/schedule"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/server"
)

// serve is the daemon body: wire up collaborators from config, enter the
// scheduler loop, and tear everything down when the serve context ends.
func serve(fc *config.FileConfig) error {
	log := logger.New(fc.Log)
	slog.SetDefault(log)

	sink, closeSink, err := openSink(fc)
	if err != nil {
		return err
	}
	defer closeSink()

	pipe := buildPipeline(fc, sink, log)
	sched := schedule.New(fc.Clock(), func(ctx context.Context) error {
		_, err := pipe.Run(ctx)
		return err
	}, log)

	ctrl := daemon.NewController(fc.Daemon.PIDFile, fc.Daemon.StopTimeout, log)
	return ctrl.Run(context.Background(), func(ctx context.Context) error {
		if fc.Metrics.Enabled {
			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}
			startMetricsServer(fc.Metrics.Listen, log)
		}
		if fc.Server.Enabled {
			httpSrv, err := server.NewServer(fc.Server.Listen, fc.Server.BasePath, pipe, sink)
			if err != nil {
				return fmt.Errorf("status server: %w", err)
			}
			log.Info("status server listening", "addr", fc.Server.Listen)
			defer func() {
				shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = httpSrv.Shutdown(shCtx)
			}()
		}

		log.Info("daily report scheduled", "at", fc.Clock().String(), "holdings", len(fc.Holdings))
		sched.Run(ctx)
		return nil
	})
}

// runOnce executes a single pipeline run synchronously. ErrAllFailed is
// passed through so the caller can exit nonzero after printing the report.
func runOnce(ctx context.Context, fc *config.FileConfig) (report.Run, string, error) {
	log := logger.New(fc.Log)

	sink, closeSink, err := openSink(fc)
	if err != nil {
		return report.Run{}, "", err
	}
	defer closeSink()

	pipe := buildPipeline(fc, sink, log)
	run, err := pipe.Run(ctx)
	if err != nil && err != pipeline.ErrAllFailed {
		return run, "", err
	}
	_, body := report.Render(run)
	return run, body, err
}

func buildPipeline(fc *config.FileConfig, sink history.Sink, log *slog.Logger) *pipeline.Pipeline {
	src := datasource.NewEastmoney(fc.Report.LookbackDays)
	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithForecastDays(fc.Report.ForecastDays),
	}
	if sink != nil {
		opts = append(opts, pipeline.WithHistory(sink))
	}
	return pipeline.New(src, fc.PipelineHoldings(), fc.Channels(), opts...)
}

// openSink opens the run history sink when one is configured. The returned
// close function is safe to call either way.
func openSink(fc *config.FileConfig) (history.Sink, func(), error) {
	if fc.History.DSN == "" {
		return nil, func() {}, nil
	}
	sink, err := histfactory.NewFromDSN(fc.History.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open history sink: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sink.EnsureSchema(ctx); err != nil {
		_ = sink.Close()
		return nil, nil, fmt.Errorf("history schema: %w", err)
	}
	return sink, func() { _ = sink.Close() }, nil
}

func startMetricsServer(addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	log.Info("metrics listening", "addr", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()
}
