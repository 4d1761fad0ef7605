package spectro

import (
	"fmt"
	"math"
)

// Skewed gaussian parameter layout: a gaussian with a low-energy exponential
// tail, plus the linear background.
const (
	skewParHeight = iota
	skewParCentroid
	skewParSigma
	skewParBeta
	skewParBgOffset
	skewParBgSlope
	skewNumParams
)

// SkewedGaussian models the asymmetric response of germanium detectors: a
// gaussian whose low-energy side carries an exponential tail of decay
// constant beta,
//
//	peak(x) = h/2 * exp((x-c)/beta) * erfc((x-c)/(sqrt2*sigma) + sigma/(sqrt2*beta))
//
// For beta -> 0 the tail vanishes and the shape degenerates to the plain
// gaussian, which is what the evaluation falls back to when beta == 0.
type SkewedGaussian struct {
	*PeakFit
}

var skewParamNames = []string{"height", "centroid", "sigma", "beta", "bg_offset", "bg_slope"}

// NewSkewedGaussian constructs a skewed gaussian peak model bound over
// [lo, hi].
func NewSkewedGaussian(lo, hi float64) *SkewedGaussian {
	sg := &SkewedGaussian{}
	sg.PeakFit = NewPeakFit(sg, "skewed_gaussian", lo, hi,
		[]bool{false, false, false, false, true, true}, skewParamNames)
	return sg
}

// PeakValue evaluates the tailed gaussian term only.
func (sg *SkewedGaussian) PeakValue(x float64, params []float64) float64 {
	if len(params) < skewNumParams {
		return 0
	}
	h := params[skewParHeight]
	c := params[skewParCentroid]
	sigma := params[skewParSigma]
	beta := params[skewParBeta]
	if sigma == 0 {
		return 0
	}
	if beta == 0 {
		d := (x - c) / sigma
		return h * math.Exp(-0.5*d*d)
	}
	arg := (x-c)/beta + sigma*sigma/(2*beta*beta)
	// Cap the exponent: erfc decays faster than exp grows, but the
	// intermediate product overflows for x far above the centroid.
	if arg > 700 {
		return 0
	}
	return h / 2 * math.Exp(arg) * math.Erfc((x-c)/(math.Sqrt2*sigma)+sigma/(math.Sqrt2*beta))
}

// BackgroundValue evaluates the linear background term only.
func (sg *SkewedGaussian) BackgroundValue(x float64, params []float64) float64 {
	if len(params) < skewNumParams {
		return 0
	}
	return params[skewParBgOffset] + params[skewParBgSlope]*x
}

// Centroid returns the fitted peak position.
func (sg *SkewedGaussian) Centroid() float64 { return sg.total.Parameter(skewParCentroid) }

// CentroidErr returns the fitted uncertainty on the peak position.
func (sg *SkewedGaussian) CentroidErr() float64 { return sg.total.ParameterError(skewParCentroid) }

// Beta returns the fitted tail decay constant.
func (sg *SkewedGaussian) Beta() float64 { return sg.total.Parameter(skewParBeta) }

// Area integrates the peak term numerically over centroid +/- 10 sigma,
// which covers the tail to well below one part in a million.
func (sg *SkewedGaussian) Area() float64 {
	c := sg.total.Parameter(skewParCentroid)
	sigma := math.Abs(sg.total.Parameter(skewParSigma))
	if sigma == 0 {
		return 0
	}
	params := sg.total.Parameters()
	peakOnly := NewFunc("skew_peak_only", sg.PeakValue, c-10*sigma, c+10*sigma, len(params))
	peakOnly.SetParameters(params)
	return peakOnly.Integral(c-10*sigma, c+10*sigma)
}

// AreaErr propagates the height, sigma and beta uncertainties into the area
// as uncorrelated relative errors. First order only; a full treatment needs
// the fit covariance, which the chi-square driver does not retain per shape.
func (sg *SkewedGaussian) AreaErr() float64 {
	var sum float64
	for _, i := range []int{skewParHeight, skewParSigma, skewParBeta} {
		v := sg.total.Parameter(i)
		if v == 0 {
			continue
		}
		r := sg.total.ParameterError(i) / v
		sum += r * r
	}
	return math.Abs(sg.Area()) * math.Sqrt(sum)
}

// Seed estimates starting parameters from the spectrum region [lo, hi) like
// the gaussian seed, starting the tail at half the estimated sigma.
func (sg *SkewedGaussian) Seed(s *Spectrum, lo, hi float64) error {
	est, err := estimatePeakRegion(s, lo, hi)
	if err != nil {
		return fmt.Errorf("seed skewed gaussian: %w", err)
	}
	sg.total.SetParameters([]float64{est.height, est.centroid, est.sigma, est.sigma / 2, est.bgOffset, est.bgSlope})
	sg.total.SetRange(lo, hi)
	return nil
}
