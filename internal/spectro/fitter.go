package spectro

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/gammalab-data/specfit/internal/monitoring"
)

// Method selects the gonum minimizer driving the chi-square fit.
type Method int

const (
	MethodNelderMead Method = iota
	MethodLBFGS
	MethodGradientDescent
)

func (m Method) String() string {
	switch m {
	case MethodLBFGS:
		return "lbfgs"
	case MethodGradientDescent:
		return "gradient"
	default:
		return "nelder-mead"
	}
}

// MethodFromString maps a config string to a Method, defaulting to
// NelderMead for anything it does not recognize.
func MethodFromString(s string) Method {
	switch s {
	case "lbfgs":
		return MethodLBFGS
	case "gradient", "gradient-descent":
		return MethodGradientDescent
	default:
		return MethodNelderMead
	}
}

func (m Method) toGonum() optimize.Method {
	switch m {
	case MethodLBFGS:
		return &optimize.LBFGS{}
	case MethodGradientDescent:
		return &optimize.GradientDescent{}
	default:
		return &optimize.NelderMead{}
	}
}

// FitResult summarizes one completed minimization. The best-fit parameters
// and their uncertainties are also written back into the fitted function, so
// the result is a report, not the source of truth.
type FitResult struct {
	Params     []float64
	Errors     []float64
	Chi2       float64
	NDF        int
	Converged  bool
	Iterations int
}

// ReducedChi2 returns chi² per degree of freedom, or 0 when NDF is not
// positive.
func (r *FitResult) ReducedChi2() float64 {
	if r.NDF <= 0 {
		return 0
	}
	return r.Chi2 / float64(r.NDF)
}

// Fitter minimizes the chi-square of a parametric function against binned
// counts. Bin variances follow the Neyman convention, var = max(count, 1),
// so empty bins do not blow up the objective.
type Fitter struct {
	Method        Method
	MaxIterations int
	Tolerance     float64
}

// NewFitter returns a fitter with the default method and stopping rules.
func NewFitter() *Fitter {
	return &Fitter{
		Method:        MethodNelderMead,
		MaxIterations: 2000,
		Tolerance:     1e-10,
	}
}

// Fit fits the model's total function to the spectrum over the function's
// bound range. On success the best parameters and their uncertainties are
// written into the total function and the model's background function is
// re-synchronized.
func (ft *Fitter) Fit(model PeakModel, s *Spectrum) (*FitResult, error) {
	total := model.TotalFunc()
	if total == nil {
		return nil, fmt.Errorf("fit %s: no total function bound", model.Name())
	}
	lo, hi := total.Range()
	xs, ys := s.Slice(lo, hi)
	if len(xs) <= total.NumParams() {
		return nil, fmt.Errorf("fit %s: region [%g, %g) has %d bins for %d parameters",
			model.Name(), lo, hi, len(xs), total.NumParams())
	}

	res, err := ft.FitFunc(total, xs, ys)
	if err != nil {
		return nil, err
	}
	model.UpdateBackgroundParameters()
	return res, nil
}

// FitFunc fits f to the sampled points (xs[i], ys[i]) starting from f's
// current parameters. It is the driver under Fit but works for any
// parametric function, waveform shapes included.
func (ft *Fitter) FitFunc(f *Func, xs, ys []float64) (*FitResult, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("fit %s: %d coordinates but %d counts", f.Name(), len(xs), len(ys))
	}
	npar := f.NumParams()
	if npar == 0 {
		return nil, fmt.Errorf("fit %s: function has no parameters", f.Name())
	}
	if len(xs) <= npar {
		return nil, fmt.Errorf("fit %s: %d points cannot constrain %d parameters", f.Name(), len(xs), npar)
	}

	objective := chiSquare(f, xs, ys)
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, nil)
		},
	}

	settings := &optimize.Settings{MajorIterations: ft.MaxIterations}
	if ft.Tolerance > 0 {
		settings.Converger = &optimize.FunctionConverge{
			Absolute:   ft.Tolerance,
			Iterations: 50,
		}
	}

	res, err := optimize.Minimize(problem, f.Parameters(), settings, ft.Method.toGonum())
	if err != nil {
		return nil, fmt.Errorf("fit %s: minimize: %w", f.Name(), err)
	}

	best := append([]float64(nil), res.Location.X...)
	f.SetParameters(best)
	errs := parameterErrors(objective, best)
	f.SetParameterErrors(errs)

	return &FitResult{
		Params:     best,
		Errors:     errs,
		Chi2:       res.Location.F,
		NDF:        len(xs) - npar,
		Converged:  statusConverged(res.Status),
		Iterations: res.Stats.MajorIterations,
	}, nil
}

// chiSquare builds the Neyman chi-square objective for f over the sampled
// points. Non-finite model values are clamped so simplex steps through bad
// parameter regions recover instead of poisoning the search.
func chiSquare(f *Func, xs, ys []float64) func(p []float64) float64 {
	return func(p []float64) float64 {
		var sum float64
		for i, x := range xs {
			v := f.EvalPar(x, p)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return math.MaxFloat64
			}
			d := ys[i] - v
			sum += d * d / math.Max(ys[i], 1)
		}
		return sum
	}
}

// parameterErrors estimates per-parameter uncertainties from the numeric
// Hessian of the chi-square at the optimum: cov = 2 H⁻¹. A Hessian that is
// not positive definite yields zero errors and one diagnostic,
// never a failed fit.
func parameterErrors(objective func([]float64) float64, best []float64) []float64 {
	n := len(best)
	errs := make([]float64, n)

	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, objective, best, nil)

	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		monitoring.Logf("chi-square hessian not positive definite, parameter errors set to zero")
		return errs
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		monitoring.Logf("chi-square hessian inversion failed: %v", err)
		return errs
	}

	for i := 0; i < n; i++ {
		v := 2 * cov.At(i, i)
		if v > 0 {
			errs[i] = math.Sqrt(v)
		}
	}
	return errs
}

func statusConverged(s optimize.Status) bool {
	switch s {
	case optimize.NotTerminated, optimize.Failure, optimize.IterationLimit,
		optimize.RuntimeLimit, optimize.FunctionEvaluationLimit:
		return false
	default:
		return true
	}
}
