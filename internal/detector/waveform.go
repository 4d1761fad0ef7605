package detector

import (
	"fmt"
	"math"

	"github.com/gammalab-data/specfit/internal/spectro"
)

// FitScheme selects how waveform shape parameters are estimated.
type FitScheme int

const (
	// SchemeQuick uses the windowed linear method only. It needs a stable
	// baseline ahead of the pulse and fails on noisy traces.
	SchemeQuick FitScheme = iota
	// SchemeQuickFallback tries the quick method and falls back to the
	// slow chi-square fit when it fails.
	SchemeQuickFallback
	// SchemeSlow always runs the slow chi-square fit, seeded by the quick
	// estimates when those are available.
	SchemeSlow
)

// Waveform shape tunables. Config applies its values here at startup; the
// defaults suit the standard digitizer settings.
var (
	// NoiseFactor scales the baseline noise when deciding whether a trace
	// contains a pulse at all.
	NoiseFactor = 4.0
	// DefaultRise seeds the rise time (in samples) when no quick estimate
	// is available.
	DefaultRise = 20.0
	// DefaultDecay seeds the decay time (in samples) when no quick
	// estimate is available.
	DefaultDecay = 4600.0
	// DefaultBaseline seeds the baseline (in ADC units) when no quick
	// estimate is available.
	DefaultBaseline = 0.0
)

// baselineSamples is how many leading samples establish the baseline, and
// decayWindow the width of each of the two sums the decay estimate uses.
const (
	baselineSamples = 16
	decayWindow     = 16
)

// ln9 separates the 10% and 90% crossing times of an exponential rise.
var ln9 = math.Log(9)

// WaveformFit holds the estimated shape of one digitizer trace. Times are in
// sample units, values in ADC units.
type WaveformFit struct {
	Baseline  float64
	Amplitude float64
	T0        float64
	Rise      float64
	Decay     float64
	// Chi2 is set by the slow path only.
	Chi2 float64
	// Slow marks results produced by the chi-square fit rather than the
	// windowed linear method.
	Slow bool
}

// waveform shape parameter layout for the slow fit.
const (
	wfParBaseline = iota
	wfParAmplitude
	wfParT0
	wfParRise
	wfParDecay
	wfNumParams
)

// rcShape is the fitted trace model: flat baseline until onset, then an
// exponential rise damped by an exponential decay.
func rcShape(x float64, p []float64) float64 {
	if len(p) < wfNumParams {
		return 0
	}
	rise, decay := p[wfParRise], p[wfParDecay]
	if rise <= 0 || decay <= 0 {
		return math.NaN() // rejected by the chi-square guard
	}
	dt := x - p[wfParT0]
	if dt < 0 {
		return p[wfParBaseline]
	}
	return p[wfParBaseline] + p[wfParAmplitude]*(1-math.Exp(-dt/rise))*math.Exp(-dt/decay)
}

// FitWaveform estimates the shape of a digitizer trace using the given
// scheme. A nil fitter gets the default chi-square driver; it is only used
// by the slow path.
func FitWaveform(samples []int16, scheme FitScheme, ft *spectro.Fitter) (*WaveformFit, error) {
	if len(samples) < 2*baselineSamples {
		return nil, fmt.Errorf("waveform has %d samples, need at least %d", len(samples), 2*baselineSamples)
	}
	ys := make([]float64, len(samples))
	for i, v := range samples {
		ys[i] = float64(v)
	}

	quick, quickErr := quickEstimate(ys)
	switch scheme {
	case SchemeQuick:
		return quick, quickErr
	case SchemeQuickFallback:
		if quickErr == nil {
			return quick, nil
		}
		return slowFit(ys, quick, ft)
	case SchemeSlow:
		return slowFit(ys, quick, ft)
	default:
		return nil, fmt.Errorf("unknown waveform fit scheme %d", scheme)
	}
}

// quickEstimate runs the windowed linear method: baseline and noise from the
// leading samples, amplitude from the extremum, rise from the 10%/90%
// crossings, decay from the ratio of two post-peak window sums.
func quickEstimate(ys []float64) (*WaveformFit, error) {
	var baseline, noise float64
	for _, v := range ys[:baselineSamples] {
		baseline += v
	}
	baseline /= baselineSamples
	for _, v := range ys[:baselineSamples] {
		d := v - baseline
		noise += d * d
	}
	noise = math.Sqrt(noise / (baselineSamples - 1))

	peak := 0
	for i, v := range ys {
		if math.Abs(v-baseline) > math.Abs(ys[peak]-baseline) {
			peak = i
		}
	}
	amp := ys[peak] - baseline
	if amp == 0 || math.Abs(amp) <= NoiseFactor*noise {
		return nil, fmt.Errorf("no pulse above noise floor (extremum %g, noise %g)", amp, noise)
	}

	t90, ok := crossing(ys, baseline, amp, peak, 0.9)
	if !ok {
		return nil, fmt.Errorf("pulse starts before the trace")
	}
	t10, ok := crossing(ys, baseline, amp, int(t90), 0.1)
	if !ok {
		return nil, fmt.Errorf("pulse starts before the trace")
	}

	rise := (t90 - t10) / ln9
	if rise <= 0 {
		rise = DefaultRise
	}
	// Extrapolate the onset from the 10% crossing of an exponential rise.
	t0 := t10 - rise*math.Log(10.0/9.0)

	return &WaveformFit{
		Baseline:  baseline,
		Amplitude: amp,
		T0:        t0,
		Rise:      rise,
		Decay:     decayEstimate(ys, baseline, amp, peak),
	}, nil
}

// crossing interpolates the time at which the polarity-corrected pulse
// fraction last rose through frac before start.
func crossing(ys []float64, baseline, amp float64, start int, frac float64) (float64, bool) {
	for i := start; i > 0; i-- {
		fHere := (ys[i] - baseline) / amp
		fPrev := (ys[i-1] - baseline) / amp
		if fPrev < frac && fHere >= frac {
			return float64(i-1) + (frac-fPrev)/(fHere-fPrev), true
		}
	}
	return 0, false
}

// decayEstimate derives the decay time from two consecutive equal-width
// window sums after the peak; an exponential tail makes their ratio
// exp(window/decay). Traces too short for both windows keep the default.
func decayEstimate(ys []float64, baseline, amp float64, peak int) float64 {
	p := peak + 1
	if p+2*decayWindow > len(ys) {
		return DefaultDecay
	}
	var s1, s2 float64
	for i := p; i < p+decayWindow; i++ {
		s1 += ys[i] - baseline
	}
	for i := p + decayWindow; i < p+2*decayWindow; i++ {
		s2 += ys[i] - baseline
	}
	// Both sums must carry the pulse polarity and show actual decay.
	if s1/amp <= 0 || s2/amp <= 0 || math.Abs(s1) <= math.Abs(s2) {
		return DefaultDecay
	}
	return decayWindow / math.Log(s1/s2)
}

// slowFit runs the chi-square fit of the trace model, seeded from the quick
// estimates when available and from the package defaults otherwise.
func slowFit(ys []float64, quick *WaveformFit, ft *spectro.Fitter) (*WaveformFit, error) {
	if ft == nil {
		ft = spectro.NewFitter()
	}

	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}

	seed := []float64{DefaultBaseline, 0, float64(len(ys)) / 4, DefaultRise, DefaultDecay}
	if quick != nil {
		seed = []float64{quick.Baseline, quick.Amplitude, quick.T0, quick.Rise, quick.Decay}
	} else {
		// No quick estimate: seed the amplitude from the raw extremum.
		peak := 0
		for i, v := range ys {
			if math.Abs(v-seed[wfParBaseline]) > math.Abs(ys[peak]-seed[wfParBaseline]) {
				peak = i
			}
		}
		seed[wfParAmplitude] = ys[peak] - seed[wfParBaseline]
	}

	f := spectro.NewFunc("waveform_rc", rcShape, 0, float64(len(ys)-1), wfNumParams)
	f.SetParameters(seed)

	res, err := ft.FitFunc(f, xs, ys)
	if err != nil {
		return nil, fmt.Errorf("waveform fit: %w", err)
	}
	return &WaveformFit{
		Baseline:  res.Params[wfParBaseline],
		Amplitude: res.Params[wfParAmplitude],
		T0:        res.Params[wfParT0],
		Rise:      math.Abs(res.Params[wfParRise]),
		Decay:     math.Abs(res.Params[wfParDecay]),
		Chi2:      res.Chi2,
		Slow:      true,
	}, nil
}
