package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Gauge renders a half-doughnut from 0 to opts.Max split into coloured
// zones, with a needle pointing at value. Values outside the scale pin the
// needle to the nearest end.
func Gauge(width int, value float64, opts GaugeOpts) (template.HTML, error) {
	if len(opts.Zones) == 0 {
		return "", fmt.Errorf("svg: gauge zones required")
	}
	if width <= 0 {
		width = DefaultGaugeWidth
	}
	maxVal := opts.Max
	if maxVal <= 0 {
		maxVal = defaultGaugeMax
	}
	prev := 0.0
	for _, z := range opts.Zones {
		if z.Max <= prev {
			return "", fmt.Errorf("svg: gauge zones must be ascending")
		}
		prev = z.Max
	}

	height := width/2 + 40
	cx := float64(width) / 2
	cy := float64(width) / 2
	outer := float64(width)/2 - 10
	inner := outer * (1 - gaugeThicknessRate)
	textColor := fallback(opts.TextColor, "#e2e8f0")
	needleColor := fallback(opts.NeedleColor, "#f8fafc")

	titleID := makeID(opts.Title, "gauge-title")
	descID := makeID(opts.Title, "gauge-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Gauge"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Gauge"))))

	start := 0.0
	for _, z := range opts.Zones {
		end := math.Min(z.Max, maxVal)
		if end <= start {
			break
		}
		b.WriteString(fmt.Sprintf("<path d=\"%s\" fill=\"%s\" aria-label=\"%s\"></path>", sector(cx, cy, inner, outer, start/maxVal, end/maxVal), z.Color, template.HTMLEscapeString(z.Label)))
		start = end
	}

	nx, ny := polar(cx, cy, outer*0.92, clamp(value, 0, maxVal)/maxVal)
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"3\" stroke-linecap=\"round\"></line>", cx, cy, nx, ny, needleColor))
	b.WriteString(fmt.Sprintf("<circle cx=\"%.2f\" cy=\"%.2f\" r=\"6\" fill=\"%s\"></circle>", cx, cy, needleColor))

	b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">0</text>", cx-outer, cy+14, textColor))
	b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", cx+outer, cy+14, textColor, formatTick(maxVal)))
	b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"22\" font-weight=\"700\" text-anchor=\"middle\">%s%s</text>", cx, cy+34, textColor, formatTick(math.Round(value*10)/10), template.HTMLEscapeString(opts.Unit)))

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// polar maps a scale fraction (0 left, 1 right) onto the upper half circle.
func polar(cx, cy, r, fraction float64) (float64, float64) {
	theta := math.Pi * (1 - fraction)
	return cx + r*math.Cos(theta), cy - r*math.Sin(theta)
}

func sector(cx, cy, inner, outer, from, to float64) string {
	ox1, oy1 := polar(cx, cy, outer, from)
	ox2, oy2 := polar(cx, cy, outer, to)
	ix2, iy2 := polar(cx, cy, inner, to)
	ix1, iy1 := polar(cx, cy, inner, from)
	return fmt.Sprintf("M %.2f %.2f A %.2f %.2f 0 0 1 %.2f %.2f L %.2f %.2f A %.2f %.2f 0 0 0 %.2f %.2f Z",
		ox1, oy1, outer, outer, ox2, oy2, ix2, iy2, inner, inner, ix1, iy1)
}
