package cli

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/fruivita/sci/jobs"
)

// JobsCLI enqueues jobs from the command line.
type JobsCLI struct {
	client *jobs.Client
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Trigger enqueues a print import requested from the command line.
func (c *JobsCLI) Trigger(ctx context.Context) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueuePrintImport(ctx, jobs.PrintImportPayload{Reason: "cli"})
}
