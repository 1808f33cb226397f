package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPrintImport drains the print log spool into the database.
	TaskPrintImport = "printlog:import"
)

// PrintImportUniqueTTL keeps queued imports from piling up.
const PrintImportUniqueTTL = 10 * time.Minute

// PrintImportPayload describes why an import was requested.
type PrintImportPayload struct {
	Reason      string `json:"reason"`
	RequestedBy int64  `json:"requested_by,omitempty"`
}

// NewPrintImportTask constructs an Asynq task.
func NewPrintImportTask(payload PrintImportPayload) (*asynq.Task, error) {
	if payload.Reason == "" {
		payload.Reason = "schedule"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPrintImport, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
