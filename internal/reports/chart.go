package reports

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Chart geometry for the revenue trend.
const (
	chartWidth   = 720
	chartHeight  = 240
	chartPadding = 32.0
	chartTicks   = 4
	chartLabels  = 6
)

// TrendChart renders the revenue trend as an inline SVG line chart.
func TrendChart(points []TrendPoint) template.HTML {
	if len(points) == 0 {
		return ""
	}
	series := make([]float64, len(points))
	maxVal := 0.0
	for i, p := range points {
		series[i], _ = p.Revenue.Float64()
		maxVal = math.Max(maxVal, series[i])
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	w := float64(chartWidth) - 2*chartPadding
	h := float64(chartHeight) - 2*chartPadding
	step := 0.0
	if len(series) > 1 {
		step = w / float64(len(series)-1)
	}
	x := func(i int) float64 {
		if len(series) == 1 {
			return chartPadding + w/2
		}
		return chartPadding + float64(i)*step
	}
	y := func(v float64) float64 { return chartPadding + h - v/maxVal*h }

	var path strings.Builder
	for i, v := range series {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, x(i), y(v))
	}
	line := strings.TrimSpace(path.String())
	base := chartPadding + h

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="trend-title">`, chartWidth, chartHeight)
	b.WriteString(`<title id="trend-title">Daily revenue</title>`)
	for i := 0; i <= chartTicks; i++ {
		v := maxVal * float64(i) / chartTicks
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#cbd5e1" stroke-width="0.5" stroke-dasharray="2,4"></line>`, chartPadding, y(v), chartPadding+w, y(v))
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="#475569" font-size="10" text-anchor="end">%s</text>`, chartPadding-4, y(v)+3, tickLabel(v))
	}
	fmt.Fprintf(&b, `<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="rgba(22,163,74,0.12)" stroke="none"></path>`, line, x(len(series)-1), base, x(0), base)
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="#16a34a" stroke-width="2" stroke-linejoin="round"></path>`, line)
	every := max(1, (len(points)+chartLabels-1)/chartLabels)
	for i, p := range points {
		if i%every != 0 && i != len(points)-1 {
			continue
		}
		label := p.Date
		if len(label) == len("2006-01-02") {
			label = label[5:]
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="#475569" font-size="10" text-anchor="middle">%s</text>`, x(i), base+14, template.HTMLEscapeString(label))
	}
	b.WriteString("</svg>")
	return template.HTML(b.String())
}

func tickLabel(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fk", v/1_000)
	}
	return fmt.Sprintf("$%.0f", v)
}
