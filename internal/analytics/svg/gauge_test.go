package svg

import (
	"math"
	"strings"
	"testing"
)

var testZones = []GaugeZone{
	{Max: 5, Color: "#10b981", Label: "VERTE"},
	{Max: 7, Color: "#f59e0b", Label: "ORANGE"},
	{Max: 10, Color: "#ea580c", Label: "ORANGE FONCÉ"},
	{Max: 15, Color: "#ef4444", Label: "ROUGE"},
	{Max: 20, Color: "#dc2626", Label: "ROUGE FONCÉ"},
}

func TestGaugeDrawsEveryZone(t *testing.T) {
	html, err := Gauge(0, 8.2, GaugeOpts{Title: "Benchmark", Zones: testZones, Unit: "%"})
	if err != nil {
		t.Fatalf("gauge renderer error: %v", err)
	}
	output := string(html)
	if strings.Count(output, "<path") != len(testZones) {
		t.Fatalf("expected %d sectors, got %s", len(testZones), output)
	}
	if !strings.Contains(output, "8,2%") {
		t.Fatalf("expected value label, got %s", output)
	}
}

func TestGaugeRejectsUnorderedZones(t *testing.T) {
	_, err := Gauge(0, 3, GaugeOpts{Zones: []GaugeZone{{Max: 7}, {Max: 5}}})
	if err == nil {
		t.Fatalf("expected ordering error")
	}
	if _, err := Gauge(0, 3, GaugeOpts{}); err == nil {
		t.Fatalf("expected missing zones error")
	}
}

func TestPolarEnds(t *testing.T) {
	x, y := polar(100, 100, 50, 0)
	if math.Abs(x-50) > 1e-9 || math.Abs(y-100) > 1e-9 {
		t.Fatalf("fraction 0 should sit on the left, got %.2f,%.2f", x, y)
	}
	x, y = polar(100, 100, 50, 0.5)
	if math.Abs(x-100) > 1e-9 || math.Abs(y-50) > 1e-9 {
		t.Fatalf("fraction 0.5 should sit on top, got %.2f,%.2f", x, y)
	}
}
