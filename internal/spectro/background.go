package spectro

import "math"

// Global background builders. These construct the shared wide-range
// background functions that individual peak models compose against when
// drawing. The returned Func is owned by the caller, who must keep it alive
// for as long as any model holds it via SetGlobalBackground.

// LinearBackground returns p0 + p1*x over [lo, hi].
func LinearBackground(lo, hi float64) *Func {
	return NewFunc("bg_linear", func(x float64, p []float64) float64 {
		if len(p) < 2 {
			return 0
		}
		return p[0] + p[1]*x
	}, lo, hi, 2)
}

// QuadraticBackground returns p0 + p1*x + p2*x^2 over [lo, hi].
func QuadraticBackground(lo, hi float64) *Func {
	return NewFunc("bg_quadratic", func(x float64, p []float64) float64 {
		if len(p) < 3 {
			return 0
		}
		return p[0] + x*(p[1]+x*p[2])
	}, lo, hi, 3)
}

// ExponentialBackground returns exp(p0 + p1*x) over [lo, hi], the usual
// shape of Compton continua at low energy.
func ExponentialBackground(lo, hi float64) *Func {
	return NewFunc("bg_exponential", func(x float64, p []float64) float64 {
		if len(p) < 2 {
			return 0
		}
		return math.Exp(p[0] + p[1]*x)
	}, lo, hi, 2)
}
