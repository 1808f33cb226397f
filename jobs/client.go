package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/fruivita/sci/internal/shared"
)

// Client submits tasks to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs a Client for the Redis behind redisOpts.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	if redisOpts.Addr == "" {
		return nil, errors.New("jobs: redis address required")
	}
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueuePrintImport queues a print import. An import already waiting in the
// queue yields an error wrapping shared.ErrDuplicate.
func (c *Client) EnqueuePrintImport(ctx context.Context, payload PrintImportPayload) (*asynq.TaskInfo, error) {
	task, err := NewPrintImportTask(payload)
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Unique(PrintImportUniqueTTL))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil, fmt.Errorf("jobs: print import already queued: %w", shared.ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: enqueue print import: %w", err)
	}
	return info, nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
