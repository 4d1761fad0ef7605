// Package plotview renders spectra and fitted curves to PNG images. It is
// the static-image counterpart of the monitor's HTML charts: the fitting core
// draws through the spectro.CurveRenderer interface and never knows which
// backend it hit.
package plotview

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gammalab-data/specfit/internal/fsutil"
	"github.com/gammalab-data/specfit/internal/spectro"
)

// Default output dimensions.
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// curveSamples is how many points a curve is evaluated at when rendered.
const curveSamples = 400

// Renderer accumulates spectra and curves on one plot and writes it out as
// a PNG. It implements spectro.CurveRenderer: curves handed to DrawCurve are
// sampled immediately and never retained.
type Renderer struct {
	p          *plot.Plot
	curveCount int
}

// New creates an empty plot with the given title and axis labels.
func New(title, xLabel, yLabel string) *Renderer {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return &Renderer{p: p}
}

// AddSpectrum draws the spectrum as a stepped line over its full range and
// adds it to the legend under label.
func (r *Renderer) AddSpectrum(s *spectro.Spectrum, label string) error {
	if s == nil {
		return fmt.Errorf("plot %q: no spectrum", label)
	}
	pts := make(plotter.XYs, 0, s.NumBins())
	for i := 0; i < s.NumBins(); i++ {
		pts = append(pts, plotter.XY{X: s.BinCenter(i), Y: s.At(i)})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plot %q: %w", label, err)
	}
	line.StepStyle = plotter.MidStep
	line.Color = color.Gray{Y: 96}
	line.Width = vg.Points(1)
	r.p.Add(line)
	r.p.Legend.Add(label, line)
	return nil
}

// DrawCurve samples c over its bound range and adds it to the plot, honoring
// the curve's line color and stroke style. Curves without an explicit color
// get the next palette color.
func (r *Renderer) DrawCurve(c *spectro.Func) error {
	lo, hi := c.Range()
	if hi <= lo {
		return fmt.Errorf("curve %q: empty range [%g, %g]", c.Name(), lo, hi)
	}

	pts := make(plotter.XYs, 0, curveSamples)
	step := (hi - lo) / float64(curveSamples-1)
	for i := 0; i < curveSamples; i++ {
		x := lo + float64(i)*step
		pts = append(pts, plotter.XY{X: x, Y: c.Eval(x)})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("curve %q: %w", c.Name(), err)
	}
	line.Width = vg.Points(1.5)
	line.Dashes = dashPattern(c.LineStyle())
	if col := c.LineColor(); col != nil {
		line.Color = col
	} else {
		line.Color = paletteColor(r.curveCount)
	}
	r.curveCount++

	r.p.Add(line)
	r.p.Legend.Add(c.Name(), line)
	return nil
}

// AddFit draws a fitted model: the total function over its fit range and the
// synchronized background, dashed, over the same range. The model's own
// background function keeps its range; a clone is rebound for display.
func (r *Renderer) AddFit(m spectro.PeakModel) error {
	total := m.TotalFunc()
	if total == nil {
		return fmt.Errorf("fit %q: no total function bound", m.Name())
	}
	if err := r.DrawCurve(total); err != nil {
		return err
	}
	lo, hi := total.Range()
	bg := m.BackgroundFunc().Clone()
	bg.SetRange(lo, hi)
	return r.DrawCurve(bg)
}

// SavePNG renders the plot at the given dimensions and writes it through the
// filesystem abstraction, so tests can render to memory.
func (r *Renderer) SavePNG(fsys fsutil.FileSystem, path string, width, height vg.Length) error {
	wt, err := r.p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// dashPattern maps a curve stroke style onto vg dash lengths.
func dashPattern(s spectro.LineStyle) []vg.Length {
	switch s {
	case spectro.LineDashed:
		return []vg.Length{vg.Points(6), vg.Points(3)}
	case spectro.LineDotted:
		return []vg.Length{vg.Points(1.5), vg.Points(2.5)}
	default:
		return nil
	}
}

// paletteColor returns the i-th color of an evenly spaced hue wheel, used
// for curves that do not carry their own color.
func paletteColor(i int) color.Color {
	hue := float64(i%8) / 8.0
	r, g, b := hslToRGB(hue, 0.7, 0.45)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// hslToRGB converts HSL to RGB (0-255 range).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
