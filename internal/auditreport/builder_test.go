package auditreport

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfiamatic/audit-flash/internal/audit"
	"github.com/perfiamatic/audit-flash/internal/narrative"
)

var fixedNow = func() time.Time { return time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC) }

func sampleResponse() audit.Response {
	return audit.Response{
		Success: true,
		Stats: audit.Stats{
			ClinicName: "Cabinet Dr. Martin",
			Period:     &audit.Period{Start: "2025-01-01", End: "2025-06-30", MonthCount: 6},
			Global: &audit.Global{
				TotalAppointments: 1200, NoShows: 96, Honored: 1104, Rate: 8,
				AverageRevenue: 150, MonthlyLostRevenue: 2400, YearlyLostRevenue: 28800,
			},
			Benchmark: &audit.Benchmark{YourRate: 8, OptimalLabel: "4-5 %", Gap: 3.5},
			WorstSlots: []audit.Slot{
				{Day: "Lundi", Hour: "09:00", TotalAppointments: 80, NoShows: 14, Rate: 17.5, LostRevenue: 2100},
				{Day: "Vendredi", Hour: "17:00", TotalAppointments: 60, NoShows: 9, Rate: 15, LostRevenue: 1350},
			},
			BestSlots: []audit.Slot{
				{Day: "Jeudi", Hour: "14:00", TotalAppointments: 70, NoShows: 1, Rate: 1.43, LostRevenue: 150},
			},
			Recovery: audit.Recovery{AtRate5: 10800, AtRate4_5: 12960},
		},
		Narrative: "# Synthèse\nVotre taux est élevé.\n## Actions\n- Rappel SMS J-1\n1. Confirmer les RDV du lundi",
	}
}

func TestBuildProducesSectionsInOrder(t *testing.T) {
	doc, err := NewBuilder(WithClock(fixedNow)).Build(sampleResponse())
	require.NoError(t, err)

	assert.Equal(t, []PageKind{PageCover, PageSummary, PageNarrative}, doc.Kinds())
	assert.Equal(t, "Cabinet Dr. Martin", doc.ClinicName)

	cover := doc.Pages[0]
	require.NotNil(t, cover.Cover)
	assert.Nil(t, cover.Footer)
	assert.Equal(t, "RAPPORT D'AUDIT NO-SHOWS", cover.Cover.Title)
	assert.Equal(t, "Période analysée : Du 01/01/2025 au 30/06/2025", cover.Cover.PeriodLine)
	assert.Equal(t, "Généré le 14/07/2025", cover.Cover.GeneratedOn)
	assert.Equal(t, "CONFIDENTIEL - Document généré par PerfIAmatic", cover.Cover.Banner)

	sum := doc.Pages[1]
	assert.Equal(t, SummaryHeader, sum.Header)
	require.NotNil(t, sum.Summary)
	require.Len(t, sum.Summary.Cards, 4)
	assert.Equal(t, "TAUX DE NO-SHOWS", sum.Summary.Cards[0].Label)
	assert.Equal(t, "8 %", sum.Summary.Cards[0].Value)
	assert.Equal(t, ToneWarning, sum.Summary.Cards[0].Tone)
	assert.Equal(t, ToneAccent, sum.Summary.Cards[1].Tone)
	assert.Equal(t, ToneWarning, sum.Summary.Cards[2].Tone)
	assert.Equal(t, TonePositive, sum.Summary.Cards[3].Tone)
	assert.True(t, strings.HasSuffix(sum.Summary.Cards[3].Value, " €/an"))
	assert.Equal(t, "Votre taux : 8 % | Taux optimal : 4-5 % | Écart : +3.5 points", sum.Summary.Benchmark)
	assert.Equal(t, &Footer{Left: "PerfIAmatic - Audit No-Shows", Center: "Cabinet Dr. Martin", Right: "Page 2"}, sum.Footer)

	narr := doc.Pages[2]
	assert.Equal(t, NarrativeHeader, narr.Header)
	assert.Equal(t, "Page 3", narr.Footer.Right)
	require.Len(t, narr.Blocks, 5)
	assert.Equal(t, narrative.KindListItem, narr.Blocks[4].Kind)
}

func TestBuildSlotTables(t *testing.T) {
	doc, err := NewBuilder(WithClock(fixedNow)).Build(sampleResponse())
	require.NoError(t, err)

	tables := doc.Pages[1].Summary.Tables
	require.Len(t, tables, 2)

	worst := tables[0]
	assert.Equal(t, "Créneau", worst.Heading)
	assert.Equal(t, ToneWarning, worst.Tone)
	require.Len(t, worst.Rows, 2)
	assert.Equal(t, Row{Slot: "Lundi à 09:00", Ratio: "14/80", Rate: "17.5 %", Amount: Currency(4200)}, worst.Rows[0])
	assert.True(t, worst.Rows[1].Shaded)

	best := tables[1]
	assert.Equal(t, "Créneau (performants)", best.Heading)
	assert.Equal(t, TonePositive, best.Tone)
	assert.Equal(t, "300 €", best.Rows[0].Amount)
	assert.False(t, best.Rows[0].Shaded)
}

func TestBuildOmitsEmptySections(t *testing.T) {
	resp := sampleResponse()
	resp.Narrative = "  \n\n"
	resp.Stats.WorstSlots = nil
	resp.Stats.BestSlots = []audit.Slot{}
	resp.Stats.Benchmark = nil

	doc, err := NewBuilder(WithClock(fixedNow)).Build(resp)
	require.NoError(t, err)

	assert.Equal(t, []PageKind{PageCover, PageSummary}, doc.Kinds())
	assert.Empty(t, doc.Pages[1].Summary.Tables)
	assert.Empty(t, doc.Pages[1].Summary.Benchmark)
}

func TestBuildNegativeGap(t *testing.T) {
	resp := sampleResponse()
	resp.Stats.Benchmark = &audit.Benchmark{YourRate: 3, OptimalLabel: "4-5 %", Gap: -1.5}

	doc, err := NewBuilder(WithClock(fixedNow)).Build(resp)
	require.NoError(t, err)
	assert.Contains(t, doc.Pages[1].Summary.Benchmark, "Écart : -1.5 points")
}

func TestBuildRejectsMissingStructure(t *testing.T) {
	resp := sampleResponse()
	resp.Stats.Global = nil

	_, err := NewBuilder().Build(resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, audit.ErrMissingField))
}

func TestBuildPaginatesLongNarrative(t *testing.T) {
	var md strings.Builder
	md.WriteString("# Analyse détaillée\n")
	for i := 0; i < 60; i++ {
		md.WriteString("- " + strings.Repeat("recommandation ", 12) + "\n")
	}
	resp := sampleResponse()
	resp.Narrative = md.String()

	doc, err := NewBuilder(WithClock(fixedNow)).Build(resp)
	require.NoError(t, err)

	require.Greater(t, len(doc.Pages), 3)
	var total int
	for i, page := range doc.Pages[2:] {
		assert.Equal(t, PageNarrative, page.Kind)
		assert.Equal(t, i+3, page.Number)
		assert.Equal(t, "Page "+strconv.Itoa(i+3), page.Footer.Right)
		if i == 0 {
			assert.Equal(t, NarrativeHeader, page.Header)
		} else {
			assert.Empty(t, page.Header)
		}
		total += len(page.Blocks)
	}
	assert.Equal(t, 61, total)
}
