package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/footwear-qc/internal/bootstrap"
	"github.com/kirillkom/footwear-qc/internal/config"
	"github.com/kirillkom/footwear-qc/internal/observability/logging"
	"github.com/kirillkom/footwear-qc/internal/observability/metrics"
)

const serviceName = "qc-worker"

func main() {
	cfg := config.Load()
	logger := logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		AnalysisObserver: workerMetrics,
		OnDelivery:       workerMetrics.ObserveQueueLag,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_addr", metricsServer.Addr)
	err = app.Queue.SubscribeInspectionCreated(ctx, func(handlerCtx context.Context, inspectionID string) error {
		start := time.Now()
		workerMetrics.StartInspection()
		err := app.ProcessUC.ProcessByID(handlerCtx, inspectionID)
		duration := time.Since(start)
		workerMetrics.FinishInspection(duration, err)

		attrs := []any{
			"inspection_id", inspectionID,
			"duration_ms", float64(duration.Microseconds()) / 1000.0,
		}
		if err != nil {
			logger.Error("inspection_processed", append(attrs, "status", "error", "error", err.Error())...)
			return err
		}
		logger.Info("inspection_processed", append(attrs, "status", "success")...)
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err.Error())
		os.Exit(1)
	}
}
