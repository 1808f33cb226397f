package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fruivita/sci/cmd/printimport/cli"
	"github.com/fruivita/sci/internal/app"
	"github.com/fruivita/sci/internal/platform/db"
)

func main() {
	enqueue := flag.Bool("enqueue", false, "queue the import for the worker instead of running it here")
	jsonOutput := flag.Bool("json", false, "print the summary as JSON")
	flag.Parse()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping print import")
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
	opts := cli.ImportOptions{JSONOutput: *jsonOutput}

	if *enqueue {
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			logger.Error("init jobs cli", slog.Any("error", err))
			os.Exit(1)
		}
		code := cli.EnqueueCommand(ctx, jobsCLI, opts)
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
		os.Exit(code)
	}

	pool, err := db.New(ctx, cfg.PGDSN, "sci-printimport")
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}

	importer, err := app.NewPrintImporter(cfg, pool, logger, nil)
	if err != nil {
		pool.Close()
		logger.Error("init importer", slog.Any("error", err))
		os.Exit(1)
	}

	code := cli.ImportCommand(ctx, importer, opts)
	if err := importer.Close(); err != nil {
		logger.Warn("spool close", slog.Any("error", err))
	}
	pool.Close()
	os.Exit(code)
}
