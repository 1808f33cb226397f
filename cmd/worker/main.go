package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fruivita/sci/internal/app"
	jobmetrics "github.com/fruivita/sci/internal/jobs"
	"github.com/fruivita/sci/internal/observability"
	"github.com/fruivita/sci/internal/platform/db"
	"github.com/fruivita/sci/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, "sci-worker")
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	importer, err := app.NewPrintImporter(cfg, pool, logger, metrics)
	if err != nil {
		logger.Error("init importer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := importer.Close(); err != nil {
			logger.Warn("spool close", slog.Any("error", err))
		}
	}()

	importJob := jobs.NewPrintImportJob(importer, logger, jobmetrics.NewMetrics(metrics.Registerer()))

	importTask, err := jobs.NewPrintImportTask(jobs.PrintImportPayload{Reason: "schedule"})
	if err != nil {
		logger.Error("build print import task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPrintImport, Handler: importJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.PrintImportCron, Task: importTask, Options: []asynq.Option{asynq.Unique(jobs.PrintImportUniqueTTL)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
