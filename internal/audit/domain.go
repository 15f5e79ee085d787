package audit

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Stats is the statistics contract returned by the analysis webhook.
// Values are treated as an immutable snapshot once decoded.
type Stats struct {
	ClinicName     string             `json:"nom_cabinet"`
	Period         *Period            `json:"periode"`
	Global         *Global            `json:"global"`
	Benchmark      *Benchmark         `json:"benchmark,omitempty"`
	WorstSlots     []Slot             `json:"top_3_pires"`
	BestSlots      []Slot             `json:"top_3_meilleurs"`
	Recovery       Recovery           `json:"potentiel"`
	ByDay          []DayStat          `json:"stats_par_jour,omitempty"`
	ByPractitioner []PractitionerStat `json:"stats_par_praticien,omitempty"`
}

// Period describes the analysed date range.
type Period struct {
	Start      string `json:"debut"`
	End        string `json:"fin"`
	MonthCount int    `json:"nb_mois"`
}

// Global holds the headline figures for the whole period.
type Global struct {
	TotalAppointments  int     `json:"total_rdv"`
	NoShows            int     `json:"no_shows"`
	Honored            int     `json:"honores"`
	Rate               float64 `json:"taux"`
	AverageRevenue     float64 `json:"ca_moyen"`
	MonthlyLostRevenue float64 `json:"ca_perdu_mois"`
	YearlyLostRevenue  float64 `json:"ca_perdu_an"`
}

// Benchmark compares the clinic rate with the sector optimum.
type Benchmark struct {
	YourRate     float64 `json:"votre_taux"`
	OptimalLabel string  `json:"optimal"`
	Gap          float64 `json:"ecart"`
}

// Slot is a (weekday, hour) bucket ranked by no-show risk.
type Slot struct {
	Day               string  `json:"jour"`
	Hour              string  `json:"heure"`
	TotalAppointments int     `json:"total"`
	NoShows           int     `json:"noShows"`
	Rate              float64 `json:"taux"`
	LostRevenue       float64 `json:"ca_perdu"`
}

// Label renders the slot as displayed in tables, e.g. "Lundi à 09:00".
func (s Slot) Label() string {
	return s.Day + " à " + s.Hour
}

// Recovery lists the yearly revenue recoverable at target rates.
type Recovery struct {
	AtRate5   float64 `json:"passage_5"`
	AtRate4_5 float64 `json:"passage_45"`
}

// DayStat is the optional per-weekday breakdown.
type DayStat struct {
	Day     string  `json:"jour"`
	Total   int     `json:"total"`
	NoShows int     `json:"noShows"`
	Rate    float64 `json:"taux"`
}

// PractitionerStat is the optional per-practitioner breakdown.
type PractitionerStat struct {
	Practitioner string  `json:"praticien"`
	Total        int     `json:"total"`
	NoShows      int     `json:"noShows"`
	Rate         float64 `json:"taux"`
	LostRevenue  float64 `json:"ca_perdu"`
}

// Response is the full webhook payload.
type Response struct {
	Success   bool    `json:"success"`
	Stats     Stats   `json:"stats"`
	Narrative string  `json:"rapport_texte"`
	PDFURL    *string `json:"pdf_url"`
	EmailSent bool    `json:"email_sent"`
	Error     string  `json:"error,omitempty"`
}

var (
	// ErrMissingField reports a structurally absent required field.
	ErrMissingField = errors.New("audit: required field missing")
	// ErrOutcomeNotFound is returned for unknown or expired audit IDs.
	ErrOutcomeNotFound = errors.New("audit: outcome not found")
)

// Validate checks the fields the report cannot be built without.
func (s Stats) Validate() error {
	if strings.TrimSpace(s.ClinicName) == "" {
		return fmt.Errorf("%w: nom_cabinet", ErrMissingField)
	}
	if s.Period == nil {
		return fmt.Errorf("%w: periode", ErrMissingField)
	}
	if s.Period.MonthCount < 1 {
		return fmt.Errorf("%w: periode.nb_mois", ErrMissingField)
	}
	if s.Global == nil {
		return fmt.Errorf("%w: global", ErrMissingField)
	}
	return nil
}

// AnnualizedLostRevenue projects a period loss onto twelve months and
// rounds to the nearest integer, halves rounding up.
func AnnualizedLostRevenue(periodLoss float64, monthCount int) float64 {
	if monthCount < 1 {
		return 0
	}
	return roundHalfUp(periodLoss * 12 / float64(monthCount))
}

// Status is the lifecycle of a submitted analysis.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome is what the result store keeps per audit ID.
type Outcome struct {
	ID             string     `json:"id"`
	Status         Status     `json:"status"`
	ClinicName     string     `json:"clinic_name"`
	Email          string     `json:"email,omitempty"`
	AverageRevenue float64    `json:"average_revenue"`
	Response       *Response  `json:"response,omitempty"`
	Error          string     `json:"error,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Done reports whether the analysis finished either way.
func (o Outcome) Done() bool {
	return o.Status == StatusSucceeded || o.Status == StatusFailed
}

// Submission carries the form values relayed to the webhook.
type Submission struct {
	CSV            string
	FileName       string
	ClinicName     string
	AverageRevenue float64
	Email          string
}

// DefaultAverageRevenue replaces a missing or non-positive average revenue.
const DefaultAverageRevenue = 150

// NormaliseAverageRevenue applies the default for non-positive values.
func NormaliseAverageRevenue(v float64) float64 {
	if v > 0 {
		return v
	}
	return DefaultAverageRevenue
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
