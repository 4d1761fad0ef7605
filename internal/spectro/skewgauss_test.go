package spectro

import (
	"math"
	"testing"
)

func TestSkewedGaussianRoles(t *testing.T) {
	sg := NewSkewedGaussian(0, 100)
	if sg.NumParams() != 6 {
		t.Fatalf("NumParams = %d, want 6", sg.NumParams())
	}
	// The tail constant belongs to the peak, not the background.
	if !sg.IsPeakParameter(skewParBeta) {
		t.Error("beta should be a peak parameter")
	}
	for i := skewParBgOffset; i <= skewParBgSlope; i++ {
		if !sg.IsBackgroundParameter(i) {
			t.Errorf("parameter %d (%s) should be a background parameter", i, sg.ParameterName(i))
		}
	}
}

func TestSkewedGaussianZeroBetaDegeneratesToGaussian(t *testing.T) {
	sg := NewSkewedGaussian(0, 100)
	params := []float64{10, 50, 2, 0, 0, 0}
	for _, x := range []float64{40, 48, 50, 52, 60} {
		d := (x - 50) / 2.0
		want := 10 * math.Exp(-0.5*d*d)
		if got := sg.PeakValue(x, params); math.Abs(got-want) > 1e-12 {
			t.Errorf("PeakValue(%g) with beta=0 = %g, want gaussian %g", x, got, want)
		}
	}
}

func TestSkewedGaussianTailAsymmetry(t *testing.T) {
	sg := NewSkewedGaussian(0, 1000)
	params := []float64{100, 500, 2, 3, 0, 0}

	// The exponential tail lifts the low side above the high side.
	low := sg.PeakValue(500-6, params)
	high := sg.PeakValue(500+6, params)
	if low <= high {
		t.Errorf("low-side tail %g should exceed high side %g", low, high)
	}
	for _, x := range []float64{494, 500, 506} {
		v := sg.PeakValue(x, params)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("PeakValue(%g) = %v, want finite", x, v)
		}
	}
}

func TestSkewedGaussianOverflowGuard(t *testing.T) {
	sg := NewSkewedGaussian(0, 10000)
	// Small beta far above the centroid drives the exponential argument past
	// the float64 range; the evaluation must clip to zero, not NaN.
	params := []float64{100, 0, 1, 0.1, 0, 0}
	got := sg.PeakValue(1000, params)
	if got != 0 {
		t.Errorf("PeakValue far above centroid = %v, want 0", got)
	}
}

func TestSkewedGaussianArea(t *testing.T) {
	sg := NewSkewedGaussian(0, 1000)

	// With beta = 0 the evaluation is a plain gaussian, so the numeric area
	// must match the analytic gaussian integral.
	sg.TotalFunc().SetParameters([]float64{100, 500, 2, 0, 0, 0})
	want := 100 * 2 * math.Sqrt(2*math.Pi)
	if got := sg.Area(); math.Abs(got-want)/want > 1e-6 {
		t.Errorf("Area with beta=0 = %g, want %g", got, want)
	}

	// With a tail the closed form over the full line is h*beta*exp(-sigma^2/(2 beta^2)).
	sg.TotalFunc().SetParameters([]float64{100, 500, 2, 2, 0, 0})
	want = 100 * 2 * math.Exp(-0.5)
	if got := sg.Area(); math.Abs(got-want)/want > 1e-3 {
		t.Errorf("Area with beta=2 = %g, want %g", got, want)
	}

	sg.TotalFunc().SetParameters([]float64{100, 500, 0, 2, 0, 0})
	if got := sg.Area(); got != 0 {
		t.Errorf("Area with zero sigma = %g, want 0", got)
	}
}

func TestSkewedGaussianSeed(t *testing.T) {
	s, err := NewSpectrum("cal", 200, 0, 200)
	if err != nil {
		t.Fatal(err)
	}
	fillGaussian(s, 100, 80, 4, 10, 0)

	sg := NewSkewedGaussian(0, 200)
	if err := sg.Seed(s, 60, 100); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if sg.Beta() <= 0 {
		t.Errorf("seeded beta = %g, want positive", sg.Beta())
	}
	if got := sg.Centroid(); math.Abs(got-80) > s.BinWidth() {
		t.Errorf("seeded centroid = %g, want within one bin of 80", got)
	}
}
