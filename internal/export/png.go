package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/garyellow/regionstat/internal/view"
)

// ContentTypePNG is the media type of ChartPNG output.
const ContentTypePNG = "image/png"

// ErrEmptyChart is returned when a chart has no labels or no series.
var ErrEmptyChart = errors.New("export: chart has nothing to draw")

// ChartOptions sizes a rendered chart.
type ChartOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

// DefaultChartOptions fits a dashboard-width chart.
func DefaultChartOptions(title string) ChartOptions {
	return ChartOptions{Title: title, Width: 10 * vg.Inch, Height: 5 * vg.Inch}
}

// ChartPNG draws bar series side by side per label and line series across
// them, then writes the image as PNG.
func ChartPNG(w io.Writer, c view.Chart, opts ChartOptions) error {
	if c.Empty() {
		return ErrEmptyChart
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Legend.Top = true
	p.Y.Min = 0

	var bars []view.Series
	for _, s := range c.Series {
		if s.Kind == view.SeriesBar {
			bars = append(bars, s)
		}
	}

	groupWidth := opts.Width / vg.Length(len(c.Labels)+1) * 0.8
	barWidth := groupWidth / vg.Length(max(len(bars), 1))
	offset := -barWidth * vg.Length(len(bars)-1) / 2

	for _, s := range c.Series {
		switch s.Kind {
		case view.SeriesLine:
			line, err := plotter.NewLine(lineXYs(s.Values))
			if err != nil {
				return fmt.Errorf("line %s: %w", s.Name, err)
			}
			line.LineStyle.Color = parseHexColor(s.Color)
			line.LineStyle.Width = vg.Points(2)
			line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
			p.Add(line)
			p.Legend.Add(s.Name, line)
		default:
			bar, err := plotter.NewBarChart(plotter.Values(s.Values), barWidth)
			if err != nil {
				return fmt.Errorf("bars %s: %w", s.Name, err)
			}
			bar.Color = parseHexColor(s.Color)
			bar.LineStyle.Width = 0
			bar.Offset = offset
			offset += barWidth
			p.Add(bar)
			p.Legend.Add(s.Name, bar)
		}
	}

	p.Add(plotter.NewGrid())
	p.NominalX(c.Labels...)
	if len(c.Labels) > 8 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

func lineXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	return xys
}

var fallbackColor = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xFF}

// parseHexColor reads "#RRGGBB"; anything else draws grey.
func parseHexColor(s string) color.Color {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return fallbackColor
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return fallbackColor
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xFF}
}
