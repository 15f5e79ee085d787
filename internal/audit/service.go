package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Analyzer performs the upstream analysis of a submission.
type Analyzer interface {
	Analyze(ctx context.Context, sub Submission) (Response, error)
}

// LeadRecorder keeps track of submissions for follow-up.
type LeadRecorder interface {
	Record(ctx context.Context, o Outcome) error
	Complete(ctx context.Context, o Outcome) error
}

// CompletionNotifier is told about every successful analysis.
type CompletionNotifier interface {
	AnalysisSucceeded(ctx context.Context, o Outcome) error
}

// Visitor-facing fallbacks stored with failed outcomes.
const (
	msgAnalysisFailed = "Erreur lors de l'analyse"
	msgIncomplete     = "Réponse incomplète du service d'analyse"
)

// Service runs analyses off the request path and exposes their outcome.
type Service struct {
	store    ResultStore
	analyzer Analyzer
	leads    LeadRecorder
	notifier CompletionNotifier
	message  func(error) string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	wg       sync.WaitGroup
}

// ServiceConfig wires the service dependencies. Store and Analyzer are
// required.
type ServiceConfig struct {
	Store    ResultStore
	Analyzer Analyzer
	Leads    LeadRecorder
	Notifier CompletionNotifier
	// Message converts analyzer errors to visitor text.
	Message func(error) string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewService constructs the analysis service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil || cfg.Analyzer == nil {
		return nil, errors.New("audit: store and analyzer required")
	}
	s := &Service{
		store:    cfg.Store,
		analyzer: cfg.Analyzer,
		leads:    cfg.Leads,
		notifier: cfg.Notifier,
		message:  cfg.Message,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	if s.message == nil {
		s.message = func(err error) string { return err.Error() }
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Submit stores a pending outcome and starts the analysis in the
// background. The analysis outlives ctx but is bounded by the service
// timeout.
func (s *Service) Submit(ctx context.Context, sub Submission) (string, error) {
	if strings.TrimSpace(sub.CSV) == "" || strings.TrimSpace(sub.ClinicName) == "" {
		return "", fmt.Errorf("%w: csv and nom_cabinet", ErrMissingField)
	}
	sub.ClinicName = strings.TrimSpace(sub.ClinicName)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.AverageRevenue = NormaliseAverageRevenue(sub.AverageRevenue)

	o := Outcome{
		ID:             s.newID(),
		Status:         StatusPending,
		ClinicName:     sub.ClinicName,
		Email:          sub.Email,
		AverageRevenue: sub.AverageRevenue,
		SubmittedAt:    s.now().UTC(),
	}
	if err := s.store.Save(ctx, o); err != nil {
		return "", fmt.Errorf("save pending outcome: %w", err)
	}
	if s.leads != nil {
		if err := s.leads.Record(ctx, o); err != nil {
			s.logger.Warn("record lead", slog.String("audit_id", o.ID), slog.Any("error", err))
		}
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(runCtx, o, sub)
	}()
	return o.ID, nil
}

func (s *Service) run(ctx context.Context, o Outcome, sub Submission) {
	logger := s.logger.With(slog.String("audit_id", o.ID))
	resp, err := s.analyzer.Analyze(ctx, sub)
	completed := s.now().UTC()
	o.CompletedAt = &completed

	switch {
	case err != nil:
		o.Status = StatusFailed
		o.Error = s.message(err)
		logger.Error("analysis failed", slog.Any("error", err))
	case !resp.Success:
		o.Status = StatusFailed
		o.Response = &resp
		o.Error = strings.TrimSpace(resp.Error)
		if o.Error == "" {
			o.Error = msgAnalysisFailed
		}
		logger.Warn("analysis rejected", slog.String("reason", o.Error))
	default:
		if verr := resp.Stats.Validate(); verr != nil {
			o.Status = StatusFailed
			o.Error = msgIncomplete
			logger.Error("analysis incomplete", slog.Any("error", verr))
			break
		}
		o.Status = StatusSucceeded
		o.Response = &resp
		logger.Info("analysis completed",
			slog.Float64("rate", resp.Stats.Global.Rate),
			slog.Duration("duration", completed.Sub(o.SubmittedAt)))
	}

	// Bookkeeping must not be cut short by the analysis deadline.
	bg := context.WithoutCancel(ctx)
	if err := s.store.Save(bg, o); err != nil {
		logger.Error("save outcome", slog.Any("error", err))
	}
	if s.leads != nil {
		if err := s.leads.Complete(bg, o); err != nil {
			logger.Warn("complete lead", slog.Any("error", err))
		}
	}
	if o.Status == StatusSucceeded && s.notifier != nil {
		if err := s.notifier.AnalysisSucceeded(bg, o); err != nil {
			logger.Warn("notify completion", slog.Any("error", err))
		}
	}
}

// Outcome returns the stored outcome for id.
func (s *Service) Outcome(ctx context.Context, id string) (Outcome, error) {
	if strings.TrimSpace(id) == "" {
		return Outcome{}, fmt.Errorf("%w: empty id", ErrOutcomeNotFound)
	}
	return s.store.Load(ctx, id)
}

// Wait blocks until every running analysis has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
