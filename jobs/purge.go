package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/perfiamatic/audit-flash/internal/jobs"
)

// PurgeReportsJob deletes archived PDF reports older than the payload's
// retention window.
type PurgeReportsJob struct {
	StorageDir string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewPurgeReportsJob constructs the job handler.
func NewPurgeReportsJob(storageDir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *PurgeReportsJob {
	return &PurgeReportsJob{StorageDir: storageDir, Logger: logger, Metrics: metrics, clock: time.Now}
}

// WithClock overrides the internal clock for deterministic tests.
func (j *PurgeReportsJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}

// Handle executes the purge.
func (j *PurgeReportsJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || strings.TrimSpace(j.StorageDir) == "" {
		return errors.New("purge reports: storage dir not configured")
	}
	var payload PurgeReportsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.OlderThan <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track("reports_purge")
	defer func() { err = tracker.End(err) }()

	removed, err := j.Purge(ctx, payload.OlderThan)
	if err != nil {
		j.log().Error("purge reports", slog.Any("error", err))
		return err
	}
	j.log().Info("reports purged", slog.Int("removed", removed))
	return nil
}

// Purge removes *.pdf files last modified before now minus olderThan.
func (j *PurgeReportsJob) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	now := time.Now
	if j.clock != nil {
		now = j.clock
	}
	cutoff := now().Add(-olderThan)
	entries, err := os.ReadDir(j.StorageDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, err
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.StorageDir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (j *PurgeReportsJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PurgeReportsJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPurgeReports))
	}
	return slog.Default().With(slog.String("job", TaskPurgeReports))
}
