package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(inspector, nil).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec
}

func TestHealthReportsQueueInfo(t *testing.T) {
	rec := serveHealth(t, fakeInspector{info: &asynq.QueueInfo{
		Queue:     QueueDefault,
		Pending:   3,
		Scheduled: 1,
		Retry:     2,
		Latency:   1500 * time.Millisecond,
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	var status queueStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 3, status.Pending)
	assert.Equal(t, 1, status.Scheduled)
	assert.Equal(t, 2, status.Retry)
	assert.InDelta(t, 1.5, status.LatencyS, 0.001)
}

func TestHealthUnavailable(t *testing.T) {
	rec := serveHealth(t, fakeInspector{err: errors.New("redis down")})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestNewWorkerRejectsBadRegistrations(t *testing.T) {
	opts := asynq.RedisClientOpt{Addr: "127.0.0.1:0"}

	_, err := NewWorker(WorkerConfig{RedisOpts: opts, Handlers: []TaskHandler{{Type: TaskPrintImport}}})
	require.Error(t, err)

	task, err := NewPrintImportTask(PrintImportPayload{})
	require.NoError(t, err)
	_, err = NewWorker(WorkerConfig{RedisOpts: opts, Cron: []CronRegistration{{Spec: "not a cron", Task: task}}})
	require.Error(t, err)
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(asynq.RedisClientOpt{})
	require.Error(t, err)
}
