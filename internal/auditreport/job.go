package auditreport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/perfiamatic/audit-flash/internal/audit"
	jobmetrics "github.com/perfiamatic/audit-flash/internal/jobs"
	"github.com/perfiamatic/audit-flash/jobs"
)

// OutcomeLoader reads stored analysis outcomes.
type OutcomeLoader interface {
	Outcome(ctx context.Context, id string) (audit.Outcome, error)
}

// ReportAttacher records where a report was archived.
type ReportAttacher interface {
	AttachReport(ctx context.Context, auditID, path string) error
}

// JobConfig wires dependencies required by the archive job.
type JobConfig struct {
	Outcomes   OutcomeLoader
	Builder    *Builder
	Renderer   *Renderer
	Leads      ReportAttacher
	StorageDir string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// Job archives the PDF report of a successful audit.
type Job struct {
	outcomes   OutcomeLoader
	builder    *Builder
	renderer   *Renderer
	leads      ReportAttacher
	storageDir string
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	return &Job{
		outcomes:   cfg.Outcomes,
		builder:    cfg.Builder,
		renderer:   cfg.Renderer,
		leads:      cfg.Leads,
		storageDir: cfg.StorageDir,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.outcomes == nil || j.builder == nil || j.renderer == nil {
		return fmt.Errorf("archive report job not configured")
	}
	var payload jobs.ArchiveReportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.AuditID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics.Track("audit_archive_report")
	defer func() { err = tracker.End(err) }()

	outcome, err := j.outcomes.Outcome(ctx, payload.AuditID)
	if err != nil {
		if errors.Is(err, audit.ErrOutcomeNotFound) {
			j.log().Warn("outcome expired before archive", slog.String("audit_id", payload.AuditID))
			return asynq.SkipRetry
		}
		return err
	}
	if outcome.Status != audit.StatusSucceeded || outcome.Response == nil {
		return asynq.SkipRetry
	}
	doc, err := j.builder.Build(*outcome.Response)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	rendered, err := j.renderer.Render(ctx, doc)
	if err != nil {
		return err
	}
	path, err := j.save(outcome, rendered.PDF)
	if err != nil {
		return err
	}
	if j.leads != nil {
		if err := j.leads.AttachReport(ctx, outcome.ID, path); err != nil {
			j.log().Warn("attach report to lead", slog.String("audit_id", outcome.ID), slog.Any("error", err))
		}
	}
	j.log().Info("report archived", slog.String("audit_id", outcome.ID), slog.String("file", path), slog.Int64("bytes", rendered.Length))
	return nil
}

func (j *Job) save(o audit.Outcome, pdf []byte) (string, error) {
	dir := j.storageDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "audit-reports")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	date := o.SubmittedAt
	if o.CompletedAt != nil {
		date = *o.CompletedAt
	}
	if date.IsZero() {
		date = time.Now()
	}
	path := filepath.Join(dir, o.ID+"_"+Filename(o.ClinicName, date))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (j *Job) log() *slog.Logger {
	if j != nil && j.logger != nil {
		return j.logger.With(slog.String("job", jobs.TaskArchiveReport))
	}
	return slog.Default().With(slog.String("job", jobs.TaskArchiveReport))
}
