package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/fruivita/sci/internal/jobs"
	"github.com/fruivita/sci/internal/printlog"
	"github.com/fruivita/sci/internal/shared"
)

// ImportRunner drains the print log spool once.
type ImportRunner interface {
	Run(ctx context.Context) (printlog.Summary, error)
}

// PrintImportJob runs the print log importer for queued tasks.
type PrintImportJob struct {
	Importer ImportRunner
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPrintImportJob wires dependencies for the import handler.
func NewPrintImportJob(importer ImportRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *PrintImportJob {
	return &PrintImportJob{Importer: importer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskPrintImport tasks.
func (j *PrintImportJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Importer == nil {
		return errors.New("print import: handler not configured")
	}
	var payload PrintImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskPrintImport)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	if payload.RequestedBy > 0 {
		logger = logger.With(slog.Int64("requested_by", payload.RequestedBy))
	}
	logger.Info("starting print import")

	summary, err := j.Importer.Run(ctx)
	j.Metrics.AddFiles(jobmetrics.FilesDeleted, summary.Deleted)
	j.Metrics.AddFiles(jobmetrics.FilesKept, summary.Files-summary.Deleted)
	if err != nil {
		logger.Error("print import", slog.String("run_id", summary.RunID), slog.Any("error", err))
		return err
	}
	logger.Log(ctx, shared.LevelNotice, "print import done",
		slog.String("run_id", summary.RunID),
		slog.Int("files", summary.Files),
		slog.Int("imported", summary.Imported))
	return nil
}

func (j *PrintImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.New(slog.DiscardHandler)
}
