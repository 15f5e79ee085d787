package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/perfiamatic/audit-flash/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an unauthenticated relay such as Mailpit or a
// local MTA.
type SMTPMailer struct {
	Addr string
	From string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer targets host:port.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	return &SMTPMailer{Addr: host + ":" + strconv.Itoa(port), From: from, send: smtp.SendMail}
}

// Send writes the message with UTF-8 headers. net/smtp has no context
// support, so ctx is only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("smtp: invalid recipient")
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	send := m.send
	if send == nil {
		send = smtp.SendMail
	}
	return send(m.Addr, nil, m.From, []string{to}, msg.Bytes())
}

var followUpBody = template.Must(template.New("follow_up").Parse(`Bonjour,

Merci d'avoir réalisé l'Audit Flash No-Shows pour {{.Clinic}}.

L'audit flash met en évidence vos créneaux à risque. L'Audit Complet va plus
loin : analyse par praticien, plan d'action sur 90 jours et mise en place des
rappels automatisés.

Pour en parler, répondez simplement à ce message ou écrivez à {{.Contact}}
(objet : Demande Audit Complet - 1500€).

Référence de votre audit : {{.AuditID}}

L'équipe PerfIAmatic
`))

// FollowUpJob sends the follow-up e-mail of a successful audit.
type FollowUpJob struct {
	Mailer  Mailer
	Contact string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewFollowUpJob constructs the job handler.
func NewFollowUpJob(mailer Mailer, contact string, logger *slog.Logger, metrics *jobmetrics.Metrics) *FollowUpJob {
	return &FollowUpJob{Mailer: mailer, Contact: contact, Logger: logger, Metrics: metrics}
}

// Handle executes the follow-up mail job.
func (j *FollowUpJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Mailer == nil {
		return errors.New("follow-up: mailer not configured")
	}
	var payload FollowUpPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if strings.TrimSpace(payload.To) == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track("mail_follow_up")
	defer func() { err = tracker.End(err) }()

	var body bytes.Buffer
	if err := followUpBody.Execute(&body, map[string]string{
		"Clinic":  payload.Clinic,
		"Contact": j.Contact,
		"AuditID": payload.AuditID,
	}); err != nil {
		return err
	}
	subject := "Votre Audit Flash No-Shows"
	if payload.Clinic != "" {
		subject += " - " + payload.Clinic
	}
	if err := j.Mailer.Send(ctx, payload.To, subject, body.String()); err != nil {
		j.log().Error("send follow-up", slog.String("audit_id", payload.AuditID), slog.Any("error", err))
		return err
	}
	j.log().Info("follow-up sent", slog.String("audit_id", payload.AuditID))
	return nil
}

func (j *FollowUpJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *FollowUpJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskFollowUpMail))
	}
	return slog.Default().With(slog.String("job", TaskFollowUpMail))
}
