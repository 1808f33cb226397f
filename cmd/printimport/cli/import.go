// Package cli implements the print import command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/fruivita/sci/internal/printlog"
)

// ExitLinesSkipped is returned when the run finished but some lines were
// rejected or not persisted.
const ExitLinesSkipped = 10

// Runner drains the print log spool once.
type Runner interface {
	Run(ctx context.Context) (printlog.Summary, error)
}

// Enqueuer hands the import to the worker instead of running it inline.
type Enqueuer interface {
	Trigger(ctx context.Context) (*asynq.TaskInfo, error)
}

// ImportOptions defines available flags for the import command.
type ImportOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ImportCommand runs the importer and prints its summary. It returns the
// process exit code.
func ImportCommand(ctx context.Context, runner Runner, opts ImportOptions) int {
	opts = withDefaults(opts)
	if runner == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "printimport: importer not configured")
		return 1
	}
	summary, err := runner.Run(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "printimport: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "printimport: encode json: %v\n", err)
			return 1
		}
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "run %s: %d files (%d deleted), %d lines: %d imported, %d rejected, %d failed\n",
			summary.RunID, summary.Files, summary.Deleted, summary.Lines, summary.Imported, summary.Rejected, summary.Failed)
	}
	if summary.Rejected > 0 || summary.Failed > 0 {
		return ExitLinesSkipped
	}
	return 0
}

// EnqueueCommand queues an import for the worker and prints the task id.
func EnqueueCommand(ctx context.Context, queue Enqueuer, opts ImportOptions) int {
	opts = withDefaults(opts)
	if queue == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "printimport: queue not configured")
		return 1
	}
	info, err := queue.Trigger(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "printimport: enqueue: %v\n", err)
		return 1
	}
	if info == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "printimport: enqueue: no task info")
		return 1
	}
	if opts.JSONOutput {
		_ = json.NewEncoder(opts.Stdout).Encode(map[string]string{"task_id": info.ID, "queue": info.Queue})
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "queued %s on %s\n", info.ID, info.Queue)
	}
	return 0
}

func withDefaults(opts ImportOptions) ImportOptions {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return opts
}
