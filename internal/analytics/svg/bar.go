package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars renders a single-series bar chart, one bar per label. Values below
// zero are drawn as empty bars.
func Bars(width, height int, values []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("svg: at least one value required")
	}
	if len(values) != len(labels) {
		return "", fmt.Errorf("svg: values length must match labels")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}

	axisColor := fallback(opts.AxisColor, "#94a3b8")
	gridColor := fallback(opts.GridColor, "#334155")
	color := fallback(opts.Color, "#06b6d4")
	colorFor := opts.ColorFor
	if colorFor == nil {
		colorFor = func(float64) string { return color }
	}

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	maxVal := math.Ceil(maxOf(values))
	if maxVal <= 0 || almostEqual(maxVal, 0) {
		maxVal = 1
	}
	scale := chartHeight / maxVal
	bottom := padding + chartHeight
	slot := chartWidth / float64(len(values))
	barWidth := slot * 0.6

	titleID := makeID(opts.Title, "bar-title")
	descID := makeID(opts.Title, "bar-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Bar chart"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Bar chart"))))

	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		y := bottom - ratio*chartHeight
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", padding, y, padding+chartWidth, y, gridColor))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s%s</text>", padding-6, y+4, axisColor, formatTick(maxVal*ratio), template.HTMLEscapeString(opts.Unit)))
	}
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"1\"></line>", padding, bottom, padding+chartWidth, bottom, axisColor))

	for i, label := range labels {
		v := math.Max(values[i], 0)
		h := clamp(v*scale, 0, chartHeight)
		x := padding + float64(i)*slot + (slot-barWidth)/2
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"3\" fill=\"%s\" aria-label=\"%s %s%s\"></rect>",
			x, bottom-h, barWidth, h, colorFor(values[i]), template.HTMLEscapeString(label), formatTick(values[i]), template.HTMLEscapeString(opts.Unit)))
		center := padding + float64(i)*slot + slot/2
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", center, bottom+14, axisColor, template.HTMLEscapeString(label)))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
