package spectro

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/integrate/quad"
)

// EvalFunc is the evaluation callback every curve model is built on: it maps
// a coordinate and a full parameter vector to a scalar.
type EvalFunc func(x float64, params []float64) float64

// LineStyle selects how a curve is stroked when rendered. Styling is purely
// cosmetic and has no effect on evaluation or fitting.
type LineStyle int

const (
	LineSolid LineStyle = iota
	LineDashed
	LineDotted
)

func (s LineStyle) String() string {
	switch s {
	case LineDashed:
		return "dashed"
	case LineDotted:
		return "dotted"
	default:
		return "solid"
	}
}

// Func is a named parametric function over a coordinate range. It owns its
// parameter vector (and the per-parameter uncertainties a fit writes back)
// but evaluation always goes through the supplied callback, so the same
// callback can be shared by several Func instances with different parameters.
type Func struct {
	name      string
	eval      EvalFunc
	params    []float64
	errs      []float64
	xMin      float64
	xMax      float64
	lineColor color.Color
	lineStyle LineStyle
}

// NewFunc constructs a function with npar zero-valued parameters bound over
// [xMin, xMax].
func NewFunc(name string, eval EvalFunc, xMin, xMax float64, npar int) *Func {
	if npar < 0 {
		npar = 0
	}
	return &Func{
		name:   name,
		eval:   eval,
		params: make([]float64, npar),
		errs:   make([]float64, npar),
		xMin:   xMin,
		xMax:   xMax,
	}
}

// Name returns the function's identifier, used for legends and reports.
func (f *Func) Name() string { return f.name }

// Eval evaluates the function at x with its current parameter vector.
func (f *Func) Eval(x float64) float64 {
	return f.EvalPar(x, f.params)
}

// EvalPar evaluates the function at x with an explicit parameter vector,
// leaving the stored parameters untouched.
func (f *Func) EvalPar(x float64, params []float64) float64 {
	if f.eval == nil {
		return 0
	}
	return f.eval(x, params)
}

// NumParams returns the size of the parameter vector.
func (f *Func) NumParams() int { return len(f.params) }

// Parameter returns the parameter at index i, or 0 if i is out of range.
func (f *Func) Parameter(i int) float64 {
	if i < 0 || i >= len(f.params) {
		return 0
	}
	return f.params[i]
}

// SetParameter sets the parameter at index i.
func (f *Func) SetParameter(i int, v float64) error {
	if i < 0 || i >= len(f.params) {
		return fmt.Errorf("parameter index %d out of range [0,%d)", i, len(f.params))
	}
	f.params[i] = v
	return nil
}

// Parameters returns a copy of the current parameter vector.
func (f *Func) Parameters() []float64 {
	out := make([]float64, len(f.params))
	copy(out, f.params)
	return out
}

// SetParameters copies vals into the parameter vector. When the lengths
// differ only the first min(len(vals), NumParams()) entries are written; the
// rest keep their previous values.
func (f *Func) SetParameters(vals []float64) {
	copy(f.params, vals)
}

// ParameterError returns the stored uncertainty for parameter i, or 0 if i
// is out of range.
func (f *Func) ParameterError(i int) float64 {
	if i < 0 || i >= len(f.errs) {
		return 0
	}
	return f.errs[i]
}

// SetParameterErrors copies per-parameter uncertainties, first-N like
// SetParameters. Fit drivers call this after inverting the curvature matrix.
func (f *Func) SetParameterErrors(vals []float64) {
	copy(f.errs, vals)
}

// Range returns the bound coordinate range.
func (f *Func) Range() (xMin, xMax float64) { return f.xMin, f.xMax }

// SetRange rebinds the coordinate range.
func (f *Func) SetRange(xMin, xMax float64) {
	f.xMin, f.xMax = xMin, xMax
}

// LineColor returns the display color, which may be nil when the renderer
// should pick from its own palette.
func (f *Func) LineColor() color.Color { return f.lineColor }

// SetLineColor sets the display color.
func (f *Func) SetLineColor(c color.Color) { f.lineColor = c }

// LineStyle returns the display stroke style.
func (f *Func) LineStyle() LineStyle { return f.lineStyle }

// SetLineStyle sets the display stroke style.
func (f *Func) SetLineStyle(s LineStyle) { f.lineStyle = s }

// Integral computes the definite integral of the function between lo and hi
// using fixed-order Gauss-Legendre quadrature with the current parameters.
func (f *Func) Integral(lo, hi float64) float64 {
	if lo == hi {
		return 0
	}
	sign := 1.0
	if lo > hi {
		lo, hi = hi, lo
		sign = -1.0
	}
	v := quad.Fixed(func(x float64) float64 { return f.Eval(x) }, lo, hi, 200, nil, 0)
	return sign * v
}

// Clone returns an independent copy sharing the same evaluation callback.
func (f *Func) Clone() *Func {
	c := &Func{
		name:      f.name,
		eval:      f.eval,
		params:    make([]float64, len(f.params)),
		errs:      make([]float64, len(f.errs)),
		xMin:      f.xMin,
		xMax:      f.xMax,
		lineColor: f.lineColor,
		lineStyle: f.lineStyle,
	}
	copy(c.params, f.params)
	copy(c.errs, f.errs)
	return c
}
