// Package auditreport turns an analysis response into a paginated report
// document and renders it to HTML and PDF.
package auditreport

import "github.com/perfiamatic/audit-flash/internal/narrative"

// Palette is the report colour scheme.
type Palette struct {
	Background string
	Card       string
	Accent     string
	Text       string
	Muted      string
	Rule       string
	Warning    string
	Positive   string
}

// DefaultPalette is the dark gold-accented scheme.
var DefaultPalette = Palette{
	Background: "#111111",
	Card:       "#1a1a1a",
	Accent:     "#d4a843",
	Text:       "#ffffff",
	Muted:      "#a0a0a0",
	Rule:       "#2a2a2a",
	Warning:    "#e53e3e",
	Positive:   "#38a169",
}

// Tone selects the highlight colour of a card or amount.
type Tone string

const (
	ToneWarning  Tone = "warning"
	ToneAccent   Tone = "accent"
	TonePositive Tone = "positive"
)

// PageKind identifies the page templates.
type PageKind string

const (
	PageCover     PageKind = "cover"
	PageSummary   PageKind = "summary"
	PageNarrative PageKind = "narrative"
)

// Section headers.
const (
	SummaryHeader   = "SYNTHÈSE CHIFFRÉE"
	NarrativeHeader = "ANALYSE & RECOMMANDATIONS IA"
)

// Cover is the first page.
type Cover struct {
	BrandInitial string
	BrandRest    string
	Title        string
	ClinicName   string
	PeriodLine   string
	GeneratedOn  string
	Banner       string
}

// Card is one headline metric.
type Card struct {
	Label string
	Value string
	Tone  Tone
}

// Row is one slot line of a table.
type Row struct {
	Slot   string
	Ratio  string
	Rate   string
	Amount string
	Shaded bool
}

// Table lists ranked slots.
type Table struct {
	Heading string
	Tone    Tone
	Rows    []Row
}

// Summary holds the figures page.
type Summary struct {
	Cards     []Card
	Benchmark string
	Tables    []Table
}

// Footer is repeated on every content page.
type Footer struct {
	Left   string
	Center string
	Right  string
}

// Page is one physical page of the report. Only the field matching Kind
// is set.
type Page struct {
	Kind    PageKind
	Number  int
	Header  string
	Cover   *Cover
	Summary *Summary
	Blocks  []narrative.Block
	Footer  *Footer
}

// Document is the fully laid out report.
type Document struct {
	Title      string
	ClinicName string
	Palette    Palette
	Pages      []Page
}

// Kinds lists page kinds in order.
func (d Document) Kinds() []PageKind {
	kinds := make([]PageKind, len(d.Pages))
	for i, p := range d.Pages {
		kinds[i] = p.Kind
	}
	return kinds
}
