package jobs

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskArchiveReport renders and stores the PDF report of an audit.
	TaskArchiveReport = "audit:archive_report"
	// TaskFollowUpMail sends the follow-up e-mail offering the full audit.
	TaskFollowUpMail = "mail:follow_up"
	// TaskPurgeReports removes archived reports past their retention.
	TaskPurgeReports = "reports:purge"
)

// ErrEmptyPayload rejects tasks that would be skipped by their handler anyway.
var ErrEmptyPayload = errors.New("jobs: empty payload")

// ArchiveReportPayload identifies the audit to archive.
type ArchiveReportPayload struct {
	AuditID string `json:"audit_id"`
}

// FollowUpPayload describes the follow-up e-mail.
type FollowUpPayload struct {
	To      string `json:"to"`
	Clinic  string `json:"clinic"`
	AuditID string `json:"audit_id"`
}

// PurgeReportsPayload carries the retention window.
type PurgeReportsPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewArchiveReportTask constructs the archive task. The task ID is derived
// from the audit ID so a duplicate enqueue is rejected by the broker.
func NewArchiveReportTask(auditID string) (*asynq.Task, error) {
	auditID = strings.TrimSpace(auditID)
	if auditID == "" {
		return nil, ErrEmptyPayload
	}
	body, err := json.Marshal(ArchiveReportPayload{AuditID: auditID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArchiveReport, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID("archive:"+auditID),
		asynq.MaxRetry(5),
	), nil
}

// NewFollowUpTask constructs the follow-up mail task.
func NewFollowUpTask(payload FollowUpPayload) (*asynq.Task, error) {
	payload.To = strings.TrimSpace(payload.To)
	if payload.To == "" || payload.AuditID == "" {
		return nil, ErrEmptyPayload
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpMail, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID("follow-up:"+payload.AuditID),
		asynq.MaxRetry(3),
		asynq.ProcessIn(10*time.Minute),
	), nil
}

// NewPurgeReportsTask constructs the periodic purge task.
func NewPurgeReportsTask(olderThan time.Duration) (*asynq.Task, error) {
	if olderThan <= 0 {
		return nil, ErrEmptyPayload
	}
	body, err := json.Marshal(PurgeReportsPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeReports, body, asynq.Queue(QueueDefault)), nil
}
