// Package monitor renders analysis output for inspection: static PNG plots
// written after a run, and an HTTP server with interactive charts.
package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/WEILMAX/oma-tracking/internal/modal"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ModePlotter writes PNG plots of analysis results into an output directory.
type ModePlotter struct {
	outputDir string
}

// NewModePlotter creates a plotter writing into outputDir, creating it if
// needed.
func NewModePlotter(outputDir string) (*ModePlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &ModePlotter{outputDir: outputDir}, nil
}

// SaveHarmonicsPlot plots observed frequency against rotor speed, overlaid
// with the theoretical harmonic line for each order. Points falling on a line
// are the harmonic artifacts the filter removes.
func (mp *ModePlotter) SaveHarmonicsPlot(name string, tbl *modal.Table, roles modal.Roles, orders []int) (string, error) {
	freq, err := tbl.FrequencySeries(roles)
	if err != nil {
		return "", err
	}
	rpm, ok := tbl.Column(roles.RPM)
	if !ok {
		return "", fmt.Errorf("no %q column in table", roles.RPM)
	}

	p := plot.New()
	p.Title.Text = "Modal Frequency vs Rotor Speed"
	p.X.Label.Text = "RPM"
	p.Y.Label.Text = "Frequency (Hz)"

	pts := make(plotter.XYs, len(rpm))
	maxRPM := 0.0
	for i := range rpm {
		pts[i].X = rpm[i]
		pts[i].Y = freq.Values[i]
		if rpm[i] > maxRPM {
			maxRPM = rpm[i]
		}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return "", err
	}
	scatter.Radius = vg.Points(1.5)
	scatter.Color = color.RGBA{R: 60, G: 100, B: 180, A: 255}
	p.Add(scatter)
	p.Legend.Add("observed", scatter)

	if maxRPM == 0 {
		maxRPM = 1
	}
	palette := seriesPalette(len(orders))
	for i, order := range orders {
		line, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: 0},
			{X: maxRPM, Y: float64(order) / 60.0 * maxRPM},
		})
		if err != nil {
			return "", err
		}
		line.Width = vg.Points(1)
		line.Color = palette[i]
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%dP", order), line)
	}

	p.Legend.Top = true
	p.Legend.Left = true

	file := filepath.Join(mp.outputDir, name+".png")
	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return "", fmt.Errorf("failed to save harmonics plot: %w", err)
	}
	return file, nil
}

// SaveModeScatterPlot plots labeled mode frequency over time, one colored
// series per cluster label. Noise rows (label -1) are drawn in grey.
func (mp *ModePlotter) SaveModeScatterPlot(name string, tbl *modal.Table, roles modal.Roles) (string, error) {
	freq, err := tbl.FrequencySeries(roles)
	if err != nil {
		return "", err
	}
	labels, ok := tbl.Column(modal.LabelsColumn)
	if !ok {
		return "", fmt.Errorf("no %q column in table", modal.LabelsColumn)
	}
	if tbl.Len() == 0 {
		return "", fmt.Errorf("empty table")
	}

	p := plot.New()
	p.Title.Text = "Tracked Modes"
	p.X.Label.Text = "Hours"
	p.Y.Label.Text = "Frequency (Hz)"

	start := tbl.Timestamps()[0]
	byLabel := make(map[int]plotter.XYs)
	for i, ts := range tbl.Timestamps() {
		id := int(labels[i])
		byLabel[id] = append(byLabel[id], plotter.XY{
			X: ts.Sub(start).Hours(),
			Y: freq.Values[i],
		})
	}

	ids := make([]int, 0, len(byLabel))
	for id := range byLabel {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	palette := seriesPalette(len(ids))
	for i, id := range ids {
		scatter, err := plotter.NewScatter(byLabel[id])
		if err != nil {
			return "", err
		}
		scatter.Radius = vg.Points(1.5)
		if id < 0 {
			scatter.Color = color.RGBA{R: 170, G: 170, B: 170, A: 255}
			p.Add(scatter)
			p.Legend.Add("noise", scatter)
			continue
		}
		scatter.Color = palette[i]
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("mode %d", id), scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	file := filepath.Join(mp.outputDir, name+".png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return "", fmt.Errorf("failed to save mode plot: %w", err)
	}
	return file, nil
}

// seriesPalette returns n visually distinct colors.
func seriesPalette(n int) []color.RGBA {
	colors := make([]color.RGBA, n)
	for i := range colors {
		h := float64(i) / math.Max(float64(n), 1)
		r, g, b := hsvToRGB(h*360, 0.75, 0.85)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return uint8((r + m) * 255), uint8((g + m) * 255), uint8((b + m) * 255)
}
