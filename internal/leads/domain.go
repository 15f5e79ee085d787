// Package leads keeps the register of clinics that requested an audit.
package leads

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/perfiamatic/audit-flash/internal/audit"
)

// ErrNotFound is returned when a lead does not exist.
var ErrNotFound = errors.New("leads: not found")

// Lead is one audit request.
type Lead struct {
	ID             uuid.UUID
	ClinicName     string
	Email          string
	AverageRevenue float64
	Status         audit.Status
	NoShowRate     *float64
	ErrorMessage   string
	ReportPath     string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// HasEmail reports whether a follow-up can be sent.
func (l Lead) HasEmail() bool {
	return l.Email != ""
}

// FromOutcome maps an analysis outcome onto a lead row.
func FromOutcome(o audit.Outcome) (Lead, error) {
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return Lead{}, err
	}
	lead := Lead{
		ID:             id,
		ClinicName:     o.ClinicName,
		Email:          o.Email,
		AverageRevenue: o.AverageRevenue,
		Status:         o.Status,
		ErrorMessage:   o.Error,
		CreatedAt:      o.SubmittedAt,
		CompletedAt:    o.CompletedAt,
	}
	if o.Status == audit.StatusSucceeded && o.Response != nil && o.Response.Stats.Global != nil {
		rate := o.Response.Stats.Global.Rate
		lead.NoShowRate = &rate
	}
	return lead, nil
}
