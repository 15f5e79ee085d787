package leads

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/perfiamatic/audit-flash/internal/audit"
)

// Store is the persistence contract used by Service.
type Store interface {
	Insert(ctx context.Context, lead Lead) error
	Complete(ctx context.Context, lead Lead) error
	SetReportPath(ctx context.Context, id uuid.UUID, path string) error
	Get(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, limit int) ([]Lead, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service records audit requests as leads.
type Service struct {
	store Store
}

// NewService constructs the lead service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record stores a freshly submitted audit.
func (s *Service) Record(ctx context.Context, o audit.Outcome) error {
	lead, err := FromOutcome(o)
	if err != nil {
		return fmt.Errorf("leads: record %s: %w", o.ID, err)
	}
	return s.store.Insert(ctx, lead)
}

// Complete stores the analysis result of a lead.
func (s *Service) Complete(ctx context.Context, o audit.Outcome) error {
	lead, err := FromOutcome(o)
	if err != nil {
		return fmt.Errorf("leads: complete %s: %w", o.ID, err)
	}
	return s.store.Complete(ctx, lead)
}

// AttachReport records the archived report path for an audit ID.
func (s *Service) AttachReport(ctx context.Context, auditID, path string) error {
	id, err := uuid.Parse(auditID)
	if err != nil {
		return fmt.Errorf("leads: attach report %s: %w", auditID, err)
	}
	return s.store.SetReportPath(ctx, id, path)
}

// Get loads a single lead.
func (s *Service) Get(ctx context.Context, auditID string) (Lead, error) {
	id, err := uuid.Parse(auditID)
	if err != nil {
		return Lead{}, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// Latest lists recent leads, clamping limit to a sane window.
func (s *Service) Latest(ctx context.Context, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.List(ctx, limit)
}
