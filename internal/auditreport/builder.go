package auditreport

import (
	"fmt"
	"strings"
	"time"

	"github.com/perfiamatic/audit-flash/internal/audit"
	"github.com/perfiamatic/audit-flash/internal/narrative"
)

// Builder assembles report documents.
type Builder struct {
	now     func() time.Time
	layout  Layout
	palette Palette
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithClock sets the clock used for the generation date.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLayout overrides DefaultLayout.
func WithLayout(l Layout) BuilderOption {
	return func(b *Builder) {
		if l.PageLines > l.HeaderLines {
			b.layout = l
		}
	}
}

// NewBuilder constructs a builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{now: time.Now, layout: DefaultLayout, palette: DefaultPalette}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build lays out the cover, the summary and the narrative pages for resp.
func (b *Builder) Build(resp audit.Response) (Document, error) {
	stats := resp.Stats
	if err := stats.Validate(); err != nil {
		return Document{}, fmt.Errorf("build report: %w", err)
	}
	doc := Document{
		Title:      "Audit No-Shows - " + stats.ClinicName,
		ClinicName: stats.ClinicName,
		Palette:    b.palette,
	}
	doc.Pages = append(doc.Pages, Page{Kind: PageCover, Number: 1, Cover: b.cover(stats)})
	doc.Pages = append(doc.Pages, Page{
		Kind:    PageSummary,
		Number:  2,
		Header:  SummaryHeader,
		Summary: summary(stats),
		Footer:  footer(stats.ClinicName, 2),
	})

	for i, blocks := range b.layout.Paginate(narrative.Parse(resp.Narrative)) {
		number := len(doc.Pages) + 1
		page := Page{Kind: PageNarrative, Number: number, Blocks: blocks, Footer: footer(stats.ClinicName, number)}
		if i == 0 {
			page.Header = NarrativeHeader
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func (b *Builder) cover(stats audit.Stats) *Cover {
	return &Cover{
		BrandInitial: "P",
		BrandRest:    "erfIAmatic",
		Title:        "RAPPORT D'AUDIT NO-SHOWS",
		ClinicName:   stats.ClinicName,
		PeriodLine:   fmt.Sprintf("Période analysée : Du %s au %s", Date(stats.Period.Start), Date(stats.Period.End)),
		GeneratedOn:  "Généré le " + FormatDate(b.now()),
		Banner:       "CONFIDENTIEL - Document généré par PerfIAmatic",
	}
}

func summary(stats audit.Stats) *Summary {
	g := stats.Global
	s := &Summary{
		Cards: []Card{
			{Label: "TAUX DE NO-SHOWS", Value: Rate(g.Rate), Tone: ToneWarning},
			{Label: "CA PERDU / MOIS", Value: Currency(g.MonthlyLostRevenue), Tone: ToneAccent},
			{Label: "CA PERDU / AN", Value: Currency(g.YearlyLostRevenue), Tone: ToneWarning},
			{Label: "POTENTIEL RÉCUPÉRABLE", Value: Currency(stats.Recovery.AtRate4_5) + "/an", Tone: TonePositive},
		},
	}
	if bm := stats.Benchmark; bm != nil {
		s.Benchmark = fmt.Sprintf("Votre taux : %s | Taux optimal : %s | Écart : %s points",
			Rate(bm.YourRate), bm.OptimalLabel, SignedPoints(bm.Gap))
	}
	months := stats.Period.MonthCount
	if len(stats.WorstSlots) > 0 {
		s.Tables = append(s.Tables, slotTable("Créneau", ToneWarning, stats.WorstSlots, months))
	}
	if len(stats.BestSlots) > 0 {
		s.Tables = append(s.Tables, slotTable("Créneau (performants)", TonePositive, stats.BestSlots, months))
	}
	return s
}

func slotTable(heading string, tone Tone, slots []audit.Slot, months int) Table {
	t := Table{Heading: heading, Tone: tone, Rows: make([]Row, 0, len(slots))}
	for i, slot := range slots {
		t.Rows = append(t.Rows, Row{
			Slot:   slot.Label(),
			Ratio:  fmt.Sprintf("%d/%d", slot.NoShows, slot.TotalAppointments),
			Rate:   Rate(slot.Rate),
			Amount: Currency(audit.AnnualizedLostRevenue(slot.LostRevenue, months)),
			Shaded: i%2 == 1,
		})
	}
	return t
}

func footer(clinic string, page int) *Footer {
	return &Footer{
		Left:   "PerfIAmatic - Audit No-Shows",
		Center: strings.TrimSpace(clinic),
		Right:  fmt.Sprintf("Page %d", page),
	}
}
