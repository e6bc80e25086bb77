package web

import (
	"fmt"
	"strings"
	"time"

	"caretrack/internal/domain/program"
	"caretrack/internal/domain/report"
)

// Chart geometry in SVG user units.
const (
	chartWidth   = 640
	chartHeight  = 220
	chartPadLeft = 48
	chartPadX    = 16
	chartPadY    = 20
)

// chartDot is one plotted point with its hover caption.
type chartDot struct {
	X, Y    float64
	Caption string
}

// chartView is a line chart of one series laid out across the report window.
type chartView struct {
	Width, Height int
	Label         string
	Line          string // SVG polyline points
	Dots          []chartDot
	Baseline      float64
	Top           float64
	Left, Right   float64
	YMax, YMin    string
	XStart, XEnd  string
	Empty         bool
}

// newChart places series points by calendar day between the window bounds.
// The vertical scale always includes zero.
func newChart(s report.Series, window report.Range) chartView {
	c := chartView{
		Width:    chartWidth,
		Height:   chartHeight,
		Label:    s.Label,
		Top:      chartPadY,
		Baseline: chartHeight - chartPadY,
		Left:     chartPadLeft,
		Right:    chartWidth - chartPadX,
		XStart:   window.StartDate(),
		XEnd:     window.EndDate(),
		Empty:    len(s.Points) == 0,
	}
	if c.Empty {
		c.YMax, c.YMin = "0", "0"
		return c
	}

	lo, hi := 0.0, 0.0
	for _, p := range s.Points {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	c.YMax, c.YMin = formatNumber(hi), formatNumber(lo)

	span := window.End.Sub(window.Start).Hours() / 24
	plotW := c.Right - c.Left
	plotH := c.Baseline - c.Top

	coords := make([]string, 0, len(s.Points))
	for _, p := range s.Points {
		x := c.Left + plotW/2
		if d, err := time.Parse(program.DateLayout, p.Date); err == nil && span > 0 {
			x = c.Left + plotW*(d.Sub(window.Start).Hours()/24)/span
		}
		y := c.Baseline - plotH*(p.Value-lo)/(hi-lo)
		coords = append(coords, fmt.Sprintf("%.1f,%.1f", x, y))
		c.Dots = append(c.Dots, chartDot{X: x, Y: y, Caption: p.Date + ": " + formatNumber(p.Value)})
	}
	c.Line = strings.Join(coords, " ")
	return c
}
