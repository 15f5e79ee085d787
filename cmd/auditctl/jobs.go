package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/perfiamatic/audit-flash/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a job by name. arg is the audit ID for the archive job
// and the retention window for the purge job.
func (c *JobsCLI) Trigger(ctx context.Context, name, arg string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var (
		task *asynq.Task
		err  error
	)
	switch name {
	case jobs.TaskArchiveReport:
		task, err = jobs.NewArchiveReportTask(arg)
	case jobs.TaskPurgeReports:
		retention := 30 * 24 * time.Hour
		if arg != "" {
			if retention, err = time.ParseDuration(arg); err != nil {
				return nil, fmt.Errorf("jobs cli: retention: %w", err)
			}
		}
		task, err = jobs.NewPurgeReportsTask(retention)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return QueueStats{Queue: jobs.QueueDefault}, nil
	}
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

func newJobsCmd() *cobra.Command {
	var redisAddr string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the queue or enqueue maintenance jobs",
	}
	cmd.PersistentFlags().StringVar(&redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := NewJobsCLI(redisAddr)
			defer func() { _ = cli.Close() }()
			s, err := cli.InspectQueue()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
			return err
		},
	}

	trigger := &cobra.Command{
		Use:   "trigger <task> [arg]",
		Short: "Enqueue " + jobs.TaskArchiveReport + " <audit-id> or " + jobs.TaskPurgeReports + " [retention]",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := NewJobsCLI(redisAddr)
			defer func() { _ = cli.Close() }()
			arg := ""
			if len(args) == 2 {
				arg = args[1]
			}
			info, err := cli.Trigger(cmd.Context(), args[0], arg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s\n", info.Type, info.ID)
			return err
		},
	}

	cmd.AddCommand(stats, trigger)
	return cmd
}
