package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/fruivita/sci/internal/jobs"
	"github.com/fruivita/sci/internal/printlog"
)

type fakeRunner struct {
	summary printlog.Summary
	err     error
	calls   int
}

func (f *fakeRunner) Run(context.Context) (printlog.Summary, error) {
	f.calls++
	return f.summary, f.err
}

func TestNewPrintImportTask(t *testing.T) {
	task, err := NewPrintImportTask(PrintImportPayload{})
	require.NoError(t, err)
	assert.Equal(t, TaskPrintImport, task.Type())

	var payload PrintImportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "schedule", payload.Reason)
}

func TestPrintImportJobRunsImporter(t *testing.T) {
	runner := &fakeRunner{summary: printlog.Summary{RunID: "r1", Files: 3, Deleted: 2, Imported: 10}}
	job := NewPrintImportJob(runner, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewPrintImportTask(PrintImportPayload{Reason: "api", RequestedBy: 7})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, runner.calls)
}

func TestPrintImportJobPropagatesRunError(t *testing.T) {
	boom := errors.New("spool unavailable")
	runner := &fakeRunner{err: boom}
	job := NewPrintImportJob(runner, nil, nil)
	task, err := NewPrintImportTask(PrintImportPayload{})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, boom)
}

func TestPrintImportJobSkipsMalformedPayload(t *testing.T) {
	runner := &fakeRunner{}
	job := NewPrintImportJob(runner, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskPrintImport, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, runner.calls)
}

func TestPrintImportJobRequiresImporter(t *testing.T) {
	var job *PrintImportJob
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskPrintImport, nil)))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status queueStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, QueueDefault, status.Queue)
	assert.Zero(t, status.Pending)
}
