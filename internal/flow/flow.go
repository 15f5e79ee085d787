// Package flow models the visitor's upload journey as an explicit state
// machine. Transition is pure: callers carry out the returned effects.
package flow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perfiamatic/audit-flash/internal/audit"
)

// State is the current screen of the journey.
type State string

const (
	StateForm    State = "form"
	StateLoading State = "loading"
	StateResults State = "results"
	StateError   State = "error"
)

// Visitor-facing messages.
const (
	MsgValidation    = "Veuillez sélectionner un fichier CSV et indiquer le nom du cabinet"
	MsgAnalysisError = "Erreur lors de l'analyse"
	MsgServerError   = "Erreur serveur"
)

// ErrInvalidTransition is returned when an event is not allowed in the
// current state. The flow is left unchanged.
var ErrInvalidTransition = errors.New("flow: invalid transition")

// Flow is the per-visitor journey state kept in the session.
type Flow struct {
	State          State     `json:"state"`
	FileName       string    `json:"file_name,omitempty"`
	FileSize       int64     `json:"file_size,omitempty"`
	ClinicName     string    `json:"clinic_name,omitempty"`
	AverageRevenue float64   `json:"average_revenue,omitempty"`
	Email          string    `json:"email,omitempty"`
	AuditID        string    `json:"audit_id,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at,omitzero"`
	Error          string    `json:"error,omitempty"`
}

// New returns a flow on the form screen.
func New() Flow {
	return Flow{State: StateForm}
}

// EventKind enumerates what can happen to a flow.
type EventKind int

const (
	EventSubmit EventKind = iota
	EventSucceeded
	EventFailed
	EventRetry
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventSubmit:
		return "submit"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventRetry:
		return "retry"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is an input to Transition. Submission fields are only read for
// EventSubmit, Message only for EventFailed.
type Event struct {
	Kind           EventKind
	FileName       string
	FileSize       int64
	ClinicName     string
	AverageRevenue float64
	Email          string
	At             time.Time
	Message        string
}

// Submit builds a submit event from raw form values.
func Submit(fileName string, fileSize int64, clinic string, averageRevenue float64, email string, at time.Time) Event {
	return Event{
		Kind:           EventSubmit,
		FileName:       fileName,
		FileSize:       fileSize,
		ClinicName:     clinic,
		AverageRevenue: averageRevenue,
		Email:          email,
		At:             at,
	}
}

// Failed builds a failure event. An empty message falls back to the generic
// analysis error.
func Failed(msg string) Event {
	return Event{Kind: EventFailed, Message: msg}
}

// FromOutcome maps a finished analysis onto the event that completes the
// loading state. ok is false while the analysis is still pending. Payloads
// the webhook rejected are stored as failed outcomes.
func FromOutcome(o audit.Outcome) (Event, bool) {
	switch o.Status {
	case audit.StatusSucceeded:
		return Event{Kind: EventSucceeded}, true
	case audit.StatusFailed:
		return Failed(o.Error), true
	default:
		return Event{}, false
	}
}

// EffectKind enumerates the side effects a transition asks for.
type EffectKind int

const (
	EffectStartProgress EffectKind = iota
	EffectSubmitAnalysis
	EffectNotify
	EffectClearFile
)

// Effect is a side effect to be performed by the caller.
type Effect struct {
	Kind    EffectKind
	Message string
}

// Transition computes the next flow and its effects. Disallowed events
// return f unchanged together with ErrInvalidTransition.
func Transition(f Flow, ev Event) (Flow, []Effect, error) {
	if f.State == "" {
		f.State = StateForm
	}
	switch f.State {
	case StateForm:
		if ev.Kind == EventSubmit {
			return submit(f, ev)
		}
		if ev.Kind == EventReset {
			return New(), nil, nil
		}
	case StateLoading:
		switch ev.Kind {
		case EventSucceeded:
			f.State = StateResults
			f.Error = ""
			return f, nil, nil
		case EventFailed:
			msg := strings.TrimSpace(ev.Message)
			if msg == "" {
				msg = MsgAnalysisError
			}
			f.State = StateError
			f.Error = msg
			return f, []Effect{{Kind: EffectNotify, Message: msg}}, nil
		}
	case StateError:
		if ev.Kind == EventRetry || ev.Kind == EventReset {
			next := f
			next.State = StateForm
			next.FileName = ""
			next.FileSize = 0
			next.Error = ""
			next.AuditID = ""
			next.SubmittedAt = time.Time{}
			return next, []Effect{{Kind: EffectClearFile}}, nil
		}
	case StateResults:
		if ev.Kind == EventSubmit || ev.Kind == EventReset {
			return New(), nil, nil
		}
	}
	return f, nil, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev.Kind, f.State)
}

func submit(f Flow, ev Event) (Flow, []Effect, error) {
	clinic := strings.TrimSpace(ev.ClinicName)
	if ev.FileName == "" || clinic == "" {
		return f, []Effect{{Kind: EffectNotify, Message: MsgValidation}}, nil
	}
	return Flow{
		State:          StateLoading,
		FileName:       ev.FileName,
		FileSize:       ev.FileSize,
		ClinicName:     clinic,
		AverageRevenue: audit.NormaliseAverageRevenue(ev.AverageRevenue),
		Email:          strings.TrimSpace(ev.Email),
		SubmittedAt:    ev.At,
	}, []Effect{{Kind: EffectStartProgress}, {Kind: EffectSubmitAnalysis}}, nil
}

// Submission returns the values to relay for a loading flow.
func (f Flow) Submission(csv string) audit.Submission {
	return audit.Submission{
		CSV:            csv,
		FileName:       f.FileName,
		ClinicName:     f.ClinicName,
		AverageRevenue: f.AverageRevenue,
		Email:          f.Email,
	}
}

// Has reports whether effects contain kind.
func Has(effects []Effect, kind EffectKind) bool {
	for _, e := range effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
