package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/kitchenledger/kitchenledger/jobs"
)

// Enqueuer submits one-off task runs.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector jobs.QueueInspector
}

// NewJobsCLI builds the helpers from an enqueuer and a queue inspector.
func NewJobsCLI(client Enqueuer, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

var triggerable = []string{
	jobs.TaskLedgerIntegrity,
	jobs.TaskDashboardWarmup,
	jobs.TaskIdempotencyCleanup,
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	if !slices.Contains(triggerable, name) {
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	return c.client.Enqueue(ctx, name)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Failed    int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return stats, nil
	}
	if err != nil {
		return QueueStats{}, err
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Failed = info.Failed
	}
	return stats, nil
}

// RunJobs handles `jobs trigger <name>` and `jobs stats`.
func RunJobs(ctx context.Context, args []string, c *JobsCLI, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: jobs trigger <name> | jobs stats", ErrUsage)
	}
	switch args[0] {
	case "trigger":
		fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
		fs.SetOutput(out)
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: jobs trigger <%s>", ErrUsage, strings.Join(triggerable, "|"))
		}
		info, err := c.Trigger(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", fs.Arg(0), info.ID, info.Queue)
		return nil
	case "stats":
		stats, err := c.InspectQueue()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d failed_today=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Failed)
		return nil
	default:
		return fmt.Errorf("%w: unknown jobs command %q", ErrUsage, args[0])
	}
}
