package spectro

import (
	"fmt"
	"io"

	"github.com/gammalab-data/specfit/internal/monitoring"
)

// PeakEvaluator is the shape-specific half of a peak model: how to evaluate
// the peak-only and background-only contributions. Both pieces read the same
// full parameter vector; each picks out the indices that belong to it.
type PeakEvaluator interface {
	// PeakValue evaluates only the peak contribution at x.
	PeakValue(x float64, params []float64) float64
	// BackgroundValue evaluates only the background contribution at x.
	BackgroundValue(x float64, params []float64) float64
}

// PeakModel is the full contract a concrete peak shape satisfies. Concrete
// shapes embed *PeakFit for the shared decomposition machinery and add their
// own evaluation and derived quantities.
type PeakModel interface {
	PeakEvaluator

	Name() string
	NumParams() int
	ParameterName(i int) string
	IsBackgroundParameter(i int) bool
	IsPeakParameter(i int) bool
	TotalFunc() *Func
	BackgroundFunc() *Func
	TotalValue(x float64, params []float64) float64
	UpdateBackgroundParameters()
	SetGlobalBackground(bg *Func)
	GlobalBackground() *Func
	PeakOnGlobalBackground(x float64, params []float64) float64
	Draw(r CurveRenderer) error
	Seed(s *Spectrum, lo, hi float64) error

	// Derived quantities computed from the current fit state, never cached.
	Centroid() float64
	CentroidErr() float64
	Area() float64
	AreaErr() float64
}

// PeakFit holds the state shared by every peak shape: the fitted total
// function, the lazily derived background-only function, the parameter role
// table, and a non-owning reference to an externally shared global
// background. The zero value is a valid unbound model with zero parameters.
//
// A PeakFit is mutated only by its owning analysis session and must not be
// shared across goroutines without external synchronization.
type PeakFit struct {
	eval       PeakEvaluator
	name       string
	paramNames []string
	total      *Func
	background *Func
	bgPars     []bool
	globalBG   *Func
}

// defaultDomainLo, defaultDomainHi bound a freshly derived background
// function until the caller rebinds it.
const (
	defaultDomainLo = 0.0
	defaultDomainHi = 1.0
)

// NewPeakFit builds the shared fit state for a concrete shape. bgPars lists
// one role per parameter, true marking a background parameter; its length
// fixes the total function's parameter count. The total function is bound
// over [lo, hi] and evaluates ev's peak and background pieces summed.
func NewPeakFit(ev PeakEvaluator, name string, lo, hi float64, bgPars []bool, paramNames []string) *PeakFit {
	pf := &PeakFit{
		eval:       ev,
		name:       name,
		bgPars:     append([]bool(nil), bgPars...),
		paramNames: append([]string(nil), paramNames...),
	}
	pf.total = NewFunc(name, pf.TotalValue, lo, hi, len(bgPars))
	return pf
}

// Name returns the shape family name.
func (pf *PeakFit) Name() string { return pf.name }

// NumParams returns the parameter count of the bound total function, or 0
// when no total function has been bound yet.
func (pf *PeakFit) NumParams() int {
	if pf.total == nil {
		return 0
	}
	return pf.total.NumParams()
}

// ParameterName returns the declared name for parameter i, or "par<i>" when
// the shape did not name it.
func (pf *PeakFit) ParameterName(i int) string {
	if i >= 0 && i < len(pf.paramNames) {
		return pf.paramNames[i]
	}
	return fmt.Sprintf("par%d", i)
}

// IsBackgroundParameter reports whether parameter i belongs to the background
// piece. An out-of-range index is recoverable: it emits one diagnostic and
// returns true, treating the unknown parameter as background. That default
// is kept for compatibility with long-standing analysis behaviour rather
// than as a statement of intent; callers that care should range-check first.
func (pf *PeakFit) IsBackgroundParameter(i int) bool {
	if i < 0 || i >= len(pf.bgPars) {
		monitoring.Logf("parameter index %d not in role table (size %d)", i, len(pf.bgPars))
		return true
	}
	return pf.bgPars[i]
}

// IsPeakParameter is the negation of IsBackgroundParameter and inherits the
// same out-of-range fallback.
func (pf *PeakFit) IsPeakParameter(i int) bool {
	return !pf.IsBackgroundParameter(i)
}

// TotalFunc returns the fitted total function, nil when unbound.
func (pf *PeakFit) TotalFunc() *Func { return pf.total }

// BackgroundFunc returns the background-only function, deriving it from the
// total function on first call: same parameter count, bound over the unit
// default domain, dashed stroke. Repeated calls return the same instance
// until ResetBackground.
func (pf *PeakFit) BackgroundFunc() *Func {
	if pf.background == nil {
		var bgEval EvalFunc
		if pf.eval != nil {
			bgEval = pf.eval.BackgroundValue
		}
		pf.background = NewFunc(pf.name+"_background", bgEval, defaultDomainLo, defaultDomainHi, pf.NumParams())
		pf.background.SetLineStyle(LineDashed)
	}
	return pf.background
}

// ResetBackground discards the derived background function so the next
// BackgroundFunc call rebuilds it, picking up a changed parameter count.
func (pf *PeakFit) ResetBackground() { pf.background = nil }

// TotalValue is the function actually fitted: peak plus background at x for
// the given parameter vector.
func (pf *PeakFit) TotalValue(x float64, params []float64) float64 {
	if pf.eval == nil {
		return 0
	}
	return pf.eval.PeakValue(x, params) + pf.eval.BackgroundValue(x, params)
}

// UpdateBackgroundParameters copies the total function's current parameter
// vector into the background function's. The copy is first-N when the
// background function carries fewer parameters. There is no automatic
// synchronization: callers invoke this after each fit step so update
// ordering stays visible.
func (pf *PeakFit) UpdateBackgroundParameters() {
	if pf.total == nil {
		return
	}
	pf.BackgroundFunc().SetParameters(pf.total.Parameters())
}

// SetGlobalBackground binds the externally owned wide-range background the
// model composes against when drawing. The reference is non-owning; the
// caller must keep bg alive across any Draw or PeakOnGlobalBackground call.
func (pf *PeakFit) SetGlobalBackground(bg *Func) { pf.globalBG = bg }

// GlobalBackground returns the bound global background, nil when unbound.
func (pf *PeakFit) GlobalBackground() *Func { return pf.globalBG }

// PeakOnGlobalBackground evaluates the peak contribution plus the global
// background, with the global background reading its parameters from the
// sub-vector beyond this model's own parameter count. Returns 0 when no
// global background is bound.
func (pf *PeakFit) PeakOnGlobalBackground(x float64, params []float64) float64 {
	if pf.globalBG == nil {
		return 0
	}
	own := pf.NumParams()
	var rest []float64
	if own < len(params) {
		rest = params[own:]
	}
	peak := 0.0
	if pf.eval != nil {
		peak = pf.eval.PeakValue(x, params)
	}
	return peak + pf.globalBG.EvalPar(x, rest)
}

// Draw renders the peak superposed on the global background. With no global
// background bound it is a no-op. Otherwise it synthesizes a transient
// composite function over the global background's range, sized to the sum of
// both parameter counts, with this model's parameters in the low indices and
// the global background's in the high ones, styled like the total function.
// The composite is handed to the renderer and discarded on every exit path.
func (pf *PeakFit) Draw(r CurveRenderer) error {
	if pf.globalBG == nil {
		return nil
	}
	lo, hi := pf.globalBG.Range()

	composite := NewFunc(pf.name+"_on_background", pf.PeakOnGlobalBackground, lo, hi, pf.NumParams()+pf.globalBG.NumParams())
	for i := 0; i < pf.NumParams(); i++ {
		composite.SetParameter(i, pf.total.Parameter(i))
	}
	for i := 0; i < pf.globalBG.NumParams(); i++ {
		composite.SetParameter(i+pf.NumParams(), pf.globalBG.Parameter(i))
	}
	if pf.total != nil {
		composite.SetLineColor(pf.total.LineColor())
		composite.SetLineStyle(pf.total.LineStyle())
	}

	return r.DrawCurve(composite)
}

// WriteSummary writes the derived quantities of m in the fixed report order:
// centroid with its uncertainty, then area with its uncertainty.
func WriteSummary(w io.Writer, m PeakModel) error {
	if _, err := fmt.Fprintf(w, "Centroid = %v +/- %v\n", m.Centroid(), m.CentroidErr()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Area = %v +/- %v\n", m.Area(), m.AreaErr())
	return err
}
