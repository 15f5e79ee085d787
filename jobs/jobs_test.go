package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfiamatic/audit-flash/internal/audit"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-" + task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestAnalysisSucceededEnqueuesArchiveAndFollowUp(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}

	err := client.AnalysisSucceeded(context.Background(), audit.Outcome{ID: "a1", ClinicName: "Cabinet Martin", Email: "dr@martin.fr"})
	require.NoError(t, err)
	require.Len(t, fake.tasks, 2)
	assert.Equal(t, TaskArchiveReport, fake.tasks[0].Type())
	assert.Equal(t, TaskFollowUpMail, fake.tasks[1].Type())

	var payload FollowUpPayload
	require.NoError(t, json.Unmarshal(fake.tasks[1].Payload(), &payload))
	assert.Equal(t, FollowUpPayload{To: "dr@martin.fr", Clinic: "Cabinet Martin", AuditID: "a1"}, payload)
}

func TestAnalysisSucceededWithoutEmailOnlyArchives(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}

	require.NoError(t, client.AnalysisSucceeded(context.Background(), audit.Outcome{ID: "a2"}))
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskArchiveReport, fake.tasks[0].Type())
}

func TestEnqueueIgnoresDuplicateTaskID(t *testing.T) {
	client := &Client{client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	assert.NoError(t, client.EnqueueArchive(context.Background(), "a3"))

	boom := errors.New("redis down")
	client = &Client{client: &fakeEnqueuer{err: boom}}
	assert.ErrorIs(t, client.EnqueueArchive(context.Background(), "a3"), boom)
}

func TestTaskConstructorsRejectEmptyPayload(t *testing.T) {
	_, err := NewArchiveReportTask("  ")
	assert.ErrorIs(t, err, ErrEmptyPayload)
	_, err = NewFollowUpTask(FollowUpPayload{AuditID: "a1"})
	assert.ErrorIs(t, err, ErrEmptyPayload)
	_, err = NewPurgeReportsTask(0)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealthReportsQueueDepth(t *testing.T) {
	h := NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Retry: 1, Archived: 2}}, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, queueHealth{Queue: "default", Pending: 3, Retry: 1, Failed: 2}, body)
}

func TestHealthWithUnknownQueue(t *testing.T) {
	h := NewHandler(fakeInspector{err: asynq.ErrQueueNotFound}, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pending":0`)
}

type recordedMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []recordedMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, recordedMail{to, subject, body})
	return nil
}

func TestFollowUpJobSendsMail(t *testing.T) {
	mailer := &fakeMailer{}
	job := NewFollowUpJob(mailer, "contact@perfiamatic.com", nil, nil)
	task, err := NewFollowUpTask(FollowUpPayload{To: "dr@martin.fr", Clinic: "Cabinet Martin", AuditID: "a1"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "dr@martin.fr", mailer.sent[0].to)
	assert.Equal(t, "Votre Audit Flash No-Shows - Cabinet Martin", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "Cabinet Martin")
	assert.Contains(t, mailer.sent[0].body, "contact@perfiamatic.com")
	assert.Contains(t, mailer.sent[0].body, "a1")
}

func TestFollowUpJobSkipsMalformedPayload(t *testing.T) {
	job := NewFollowUpJob(&fakeMailer{}, "", nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskFollowUpMail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestFollowUpJobReturnsMailerError(t *testing.T) {
	boom := errors.New("smtp down")
	job := NewFollowUpJob(&fakeMailer{err: boom}, "", nil, nil)
	task, err := NewFollowUpTask(FollowUpPayload{To: "dr@martin.fr", AuditID: "a1"})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestSMTPMailerWritesHeaders(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m := NewSMTPMailer("127.0.0.1", 1025, "contact@perfiamatic.com")
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "dr@martin.fr", "Votre audit - Cabinet Étoile", "ligne 1\nligne 2"))
	assert.Equal(t, "127.0.0.1:1025", gotAddr)
	assert.Equal(t, "contact@perfiamatic.com", gotFrom)
	assert.Equal(t, []string{"dr@martin.fr"}, gotTo)
	msg := string(gotMsg)
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=utf-8\r\n")
	assert.True(t, strings.HasSuffix(msg, "ligne 1\r\nligne 2"))

	assert.Error(t, m.Send(context.Background(), "a@b.c\r\nBcc: x@y.z", "s", "b"))
}

func TestPurgeRemovesOnlyExpiredReports(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	write := func(name string, age time.Duration) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
		mod := now.Add(-age)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	write("old.pdf", 40*24*time.Hour)
	write("fresh.pdf", time.Hour)
	write("notes.txt", 90*24*time.Hour)

	job := NewPurgeReportsJob(dir, nil, nil)
	job.WithClock(func() time.Time { return now })
	task, err := NewPurgeReportsTask(30 * 24 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	_, err = os.Stat(filepath.Join(dir, "old.pdf"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "fresh.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}

func TestPurgeMissingDirectory(t *testing.T) {
	job := NewPurgeReportsJob(filepath.Join(t.TempDir(), "absent"), nil, nil)
	removed, err := job.Purge(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
