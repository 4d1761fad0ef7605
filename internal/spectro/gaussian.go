package spectro

import (
	"fmt"
	"math"
)

// Gaussian parameter layout. The first three indices are peak parameters,
// the last two the linear background underneath it.
const (
	gaussParHeight = iota
	gaussParCentroid
	gaussParSigma
	gaussParBgOffset
	gaussParBgSlope
	gaussNumParams
)

// fwhmFactor converts a gaussian sigma to full width at half maximum.
const fwhmFactor = 2.3548200450309493 // 2*sqrt(2*ln2)

// Gaussian is a symmetric peak on a linear background:
//
//	peak(x)       = height * exp(-(x-centroid)^2 / (2 sigma^2))
//	background(x) = offset + slope*x
type Gaussian struct {
	*PeakFit
}

var gaussParamNames = []string{"height", "centroid", "sigma", "bg_offset", "bg_slope"}

// NewGaussian constructs a gaussian peak model bound over [lo, hi].
func NewGaussian(lo, hi float64) *Gaussian {
	g := &Gaussian{}
	g.PeakFit = NewPeakFit(g, "gaussian", lo, hi,
		[]bool{false, false, false, true, true}, gaussParamNames)
	return g
}

// PeakValue evaluates the gaussian term only.
func (g *Gaussian) PeakValue(x float64, params []float64) float64 {
	if len(params) < gaussNumParams {
		return 0
	}
	sigma := params[gaussParSigma]
	if sigma == 0 {
		return 0
	}
	d := (x - params[gaussParCentroid]) / sigma
	return params[gaussParHeight] * math.Exp(-0.5*d*d)
}

// BackgroundValue evaluates the linear background term only.
func (g *Gaussian) BackgroundValue(x float64, params []float64) float64 {
	if len(params) < gaussNumParams {
		return 0
	}
	return params[gaussParBgOffset] + params[gaussParBgSlope]*x
}

// Centroid returns the fitted peak position.
func (g *Gaussian) Centroid() float64 { return g.total.Parameter(gaussParCentroid) }

// CentroidErr returns the fitted uncertainty on the peak position.
func (g *Gaussian) CentroidErr() float64 { return g.total.ParameterError(gaussParCentroid) }

// Height returns the fitted peak amplitude.
func (g *Gaussian) Height() float64 { return g.total.Parameter(gaussParHeight) }

// Sigma returns the fitted gaussian width.
func (g *Gaussian) Sigma() float64 { return g.total.Parameter(gaussParSigma) }

// FWHM returns the full width at half maximum derived from sigma.
func (g *Gaussian) FWHM() float64 { return fwhmFactor * math.Abs(g.Sigma()) }

// Area returns the analytic integral of the peak term,
// height * sigma * sqrt(2*pi).
func (g *Gaussian) Area() float64 {
	return g.Height() * math.Abs(g.Sigma()) * math.Sqrt(2*math.Pi)
}

// AreaErr propagates the height and sigma uncertainties into the area,
// treating them as uncorrelated.
func (g *Gaussian) AreaErr() float64 {
	h := g.Height()
	s := g.Sigma()
	if h == 0 || s == 0 {
		return 0
	}
	rh := g.total.ParameterError(gaussParHeight) / h
	rs := g.total.ParameterError(gaussParSigma) / s
	return math.Abs(g.Area()) * math.Sqrt(rh*rh+rs*rs)
}

// Seed estimates starting parameters from the spectrum region [lo, hi): the
// tallest bin supplies height and centroid, the half-maximum crossings a
// width, and the region's edge bins the background line. The total function
// is rebound to [lo, hi).
func (g *Gaussian) Seed(s *Spectrum, lo, hi float64) error {
	est, err := estimatePeakRegion(s, lo, hi)
	if err != nil {
		return fmt.Errorf("seed gaussian: %w", err)
	}
	g.total.SetParameters([]float64{est.height, est.centroid, est.sigma, est.bgOffset, est.bgSlope})
	g.total.SetRange(lo, hi)
	return nil
}

// regionEstimate holds starting values derived from a spectrum slice.
type regionEstimate struct {
	height   float64
	centroid float64
	sigma    float64
	bgOffset float64
	bgSlope  float64
}

// estimatePeakRegion derives peak and background starting values from the
// bins of s inside [lo, hi).
func estimatePeakRegion(s *Spectrum, lo, hi float64) (regionEstimate, error) {
	var est regionEstimate
	if s == nil {
		return est, fmt.Errorf("no spectrum")
	}
	first := s.FindBin(lo)
	last := s.FindBin(hi)
	if first < 0 {
		first = 0
	}
	if last >= s.NumBins() {
		last = s.NumBins() - 1
	}
	if last <= first {
		return est, fmt.Errorf("region [%g, %g) covers no bins", lo, hi)
	}

	maxBin := first
	maxCount := s.At(first)
	for i := first; i <= last; i++ {
		if c := s.At(i); c > maxCount {
			maxCount = c
			maxBin = i
		}
	}

	// Background line through the region's edges.
	xL, yL := s.BinCenter(first), s.At(first)
	xR, yR := s.BinCenter(last), s.At(last)
	est.bgSlope = (yR - yL) / (xR - xL)
	est.bgOffset = yL - est.bgSlope*xL

	est.centroid = s.BinCenter(maxBin)
	est.height = maxCount - (est.bgOffset + est.bgSlope*est.centroid)
	if est.height <= 0 {
		est.height = maxCount
	}

	// Width from the half-maximum crossings around the tallest bin.
	half := est.height / 2
	left, right := maxBin, maxBin
	for left > first && s.At(left-1)-(est.bgOffset+est.bgSlope*s.BinCenter(left-1)) > half {
		left--
	}
	for right < last && s.At(right+1)-(est.bgOffset+est.bgSlope*s.BinCenter(right+1)) > half {
		right++
	}
	fwhm := s.BinCenter(right) - s.BinCenter(left)
	if fwhm < s.BinWidth() {
		fwhm = s.BinWidth()
	}
	est.sigma = fwhm / fwhmFactor

	return est, nil
}
