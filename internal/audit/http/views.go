package audithttp

import (
	"html/template"
	"strings"
	"time"

	"github.com/perfiamatic/audit-flash/internal/analytics/svg"
	"github.com/perfiamatic/audit-flash/internal/audit"
	"github.com/perfiamatic/audit-flash/internal/flow"
	"github.com/perfiamatic/audit-flash/internal/narrative"
)

type formView struct {
	Error          string
	ClinicName     string
	AverageRevenue float64
	Email          string
	MaxBytes       int
	MaxSizeMB      int
}

func newFormView(f flow.Flow, message string) formView {
	return formView{
		Error:          message,
		ClinicName:     f.ClinicName,
		AverageRevenue: audit.NormaliseAverageRevenue(f.AverageRevenue),
		Email:          f.Email,
		MaxBytes:       MaxFileBytes,
		MaxSizeMB:      MaxFileBytes >> 20,
	}
}

type stepView struct {
	Label string
	Done  bool
}

type loadingView struct {
	SubmittedAtUnix int64
	Step            int
	Steps           []stepView
	ClinicName      string
	FileName        string
}

func newLoadingView(f flow.Flow, schedule flow.Schedule, now time.Time) loadingView {
	step := schedule.StepAt(now.Sub(f.SubmittedAt))
	steps := make([]stepView, 0, len(schedule))
	for i, s := range schedule {
		steps = append(steps, stepView{Label: s.Label, Done: i < step})
	}
	return loadingView{
		SubmittedAtUnix: f.SubmittedAt.Unix(),
		Step:            step,
		Steps:           steps,
		ClinicName:      f.ClinicName,
		FileName:        f.FileName,
	}
}

type errorView struct {
	Message string
}

type slotView struct {
	Label             string
	Rate              float64
	NoShows           int
	TotalAppointments int
	YearlyLoss        float64
}

type resultsView struct {
	ClinicName    string
	MonthCount    int
	PeriodStart   string
	PeriodEnd     string
	Global        audit.Global
	Recovery      audit.Recovery
	Zone          audit.Zone
	ZoneClass     string
	Gap           float64
	Gauge         template.HTML
	DayChart      template.HTML
	Worst         []slotView
	Best          []slotView
	Practitioners []audit.PractitionerStat
	Blocks        []narrative.Block
	PDFURL        string
	EmailSent     bool
}

func newResultsView(id string, resp audit.Response) (resultsView, error) {
	stats := resp.Stats
	if err := stats.Validate(); err != nil {
		return resultsView{}, err
	}
	months := stats.Period.MonthCount
	rate := stats.Global.Rate
	gap := audit.GapToOptimal(rate)
	if stats.Benchmark != nil {
		gap = stats.Benchmark.Gap
	}
	zone := audit.ZoneFor(rate)

	gauge, err := benchmarkGauge(rate)
	if err != nil {
		return resultsView{}, err
	}
	dayChart, err := dayChart(stats.ByDay)
	if err != nil {
		return resultsView{}, err
	}

	return resultsView{
		ClinicName:    stats.ClinicName,
		MonthCount:    months,
		PeriodStart:   stats.Period.Start,
		PeriodEnd:     stats.Period.End,
		Global:        *stats.Global,
		Recovery:      stats.Recovery,
		Zone:          zone,
		ZoneClass:     zoneClass(zone),
		Gap:           gap,
		Gauge:         gauge,
		DayChart:      dayChart,
		Worst:         slotViews(stats.WorstSlots, months),
		Best:          slotViews(stats.BestSlots, months),
		Practitioners: stats.ByPractitioner,
		Blocks:        narrative.Parse(narrative.Rewrite(resp.Narrative)),
		PDFURL:        "/audit/" + id + "/report.pdf",
		EmailSent:     resp.EmailSent,
	}, nil
}

func slotViews(slots []audit.Slot, months int) []slotView {
	out := make([]slotView, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotView{
			Label:             s.Label(),
			Rate:              s.Rate,
			NoShows:           s.NoShows,
			TotalAppointments: s.TotalAppointments,
			YearlyLoss:        audit.AnnualizedLostRevenue(s.LostRevenue, months),
		})
	}
	return out
}

func benchmarkGauge(rate float64) (template.HTML, error) {
	bands := audit.ZoneBands()
	zones := make([]svg.GaugeZone, 0, len(bands))
	for _, b := range bands {
		zones = append(zones, svg.GaugeZone{Max: b.Max, Color: b.Zone.Color, Label: b.Zone.Name})
	}
	return svg.Gauge(svg.DefaultGaugeWidth, rate, svg.GaugeOpts{
		Title:       "Taux de no-shows",
		Description: "Position du cabinet sur l'échelle du secteur dentaire",
		Max:         audit.ZoneScaleMax,
		Zones:       zones,
		Unit:        "%",
	})
}

// dayChart is empty when the webhook sent no per-day breakdown.
func dayChart(days []audit.DayStat) (template.HTML, error) {
	ordered := audit.OrderedDays(days)
	if len(ordered) == 0 {
		return "", nil
	}
	values := make([]float64, 0, len(ordered))
	labels := make([]string, 0, len(ordered))
	for _, d := range ordered {
		values = append(values, d.Rate)
		labels = append(labels, d.Day)
	}
	return svg.Bars(svg.DefaultWidth, svg.DefaultHeight, values, labels, svg.BarOpts{
		Title:       "Taux de no-shows par jour",
		Description: "Taux de no-shows du lundi au samedi",
		ColorFor:    audit.RateBand,
		Unit:        "%",
	})
}

var zoneClassReplacer = strings.NewReplacer(" ", "-", "É", "E", "é", "e")

func zoneClass(z audit.Zone) string {
	return strings.ToLower(zoneClassReplacer.Replace(z.Name))
}
