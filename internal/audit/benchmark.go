package audit

// SectorOptimalRate is the mid-point of the 4–5 % dental sector optimum.
const SectorOptimalRate = 4.5

// Zone classifies a no-show rate on the sector scale.
type Zone struct {
	Name    string
	Message string
	Color   string
}

var zones = []struct {
	max  float64
	zone Zone
}{
	{5, Zone{Name: "VERTE", Message: "Optimal - Excellent travail !", Color: "#10b981"}},
	{7, Zone{Name: "ORANGE", Message: "Attention - Surveillance nécessaire", Color: "#f59e0b"}},
	{10, Zone{Name: "ORANGE FONCÉ", Message: "Préoccupant - Action recommandée", Color: "#ea580c"}},
	{15, Zone{Name: "ROUGE", Message: "Critique - Action urgente requise", Color: "#ef4444"}},
}

var alarmZone = Zone{Name: "ROUGE FONCÉ", Message: "ALARME - Intervention immédiate", Color: "#dc2626"}

// ZoneFor returns the zone a rate falls in. Upper bounds are inclusive.
func ZoneFor(rate float64) Zone {
	for _, z := range zones {
		if rate <= z.max {
			return z.zone
		}
	}
	return alarmZone
}

// GapToOptimal is the distance in points between rate and the sector optimum.
func GapToOptimal(rate float64) float64 {
	return rate - SectorOptimalRate
}

// RateBand picks the bar colour used by the per-weekday chart.
func RateBand(rate float64) string {
	switch {
	case rate < 5:
		return "#10b981"
	case rate < 10:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

// WeekdayOrder is the display order of the per-weekday breakdown.
var WeekdayOrder = []string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi"}

// OrderedDays returns the per-day stats sorted Lundi..Samedi, dropping
// unknown day names.
func OrderedDays(days []DayStat) []DayStat {
	ordered := make([]DayStat, 0, len(days))
	for _, name := range WeekdayOrder {
		for _, d := range days {
			if d.Day == name {
				ordered = append(ordered, d)
				break
			}
		}
	}
	return ordered
}

// ZoneScaleMax is the upper end of the benchmark gauge scale.
const ZoneScaleMax = 20.0

// Band is a zone with its inclusive upper bound on the gauge scale.
type Band struct {
	Max  float64
	Zone Zone
}

// ZoneBands lists the zones in ascending order, the last one capped at
// ZoneScaleMax.
func ZoneBands() []Band {
	bands := make([]Band, 0, len(zones)+1)
	for _, z := range zones {
		bands = append(bands, Band{Max: z.max, Zone: z.zone})
	}
	return append(bands, Band{Max: ZoneScaleMax, Zone: alarmZone})
}
