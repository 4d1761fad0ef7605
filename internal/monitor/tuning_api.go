package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gammalab-data/specfit/internal/config"
	"github.com/gammalab-data/specfit/internal/httputil"
	"github.com/gammalab-data/specfit/internal/monitoring"
)

// handleTuning serves the effective tuning values on GET and merges a
// partial update on POST. POST bodies use the same JSON schema as the
// tuning config file; only the fields present in the body change.
func (ws *WebServer) handleTuning(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ws.writeTuning(w)
	case http.MethodPost:
		ws.handleTuningUpdate(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (ws *WebServer) writeTuning(w http.ResponseWriter) {
	ws.tuningMu.RLock()
	t := ws.tuning
	scheme := "fallback"
	if t.WaveformScheme != nil {
		scheme = *t.WaveformScheme
	}
	resolved := map[string]interface{}{
		"fit_method":          t.GetFitMethod().String(),
		"max_iterations":      t.GetMaxIterations(),
		"tolerance":           t.GetTolerance(),
		"default_shape":       t.GetDefaultShape(),
		"fit_half_width_bins": t.GetFitHalfWidthBins(),
		"min_prominence":      t.GetMinProminence(),
		"min_distance_bins":   t.GetMinDistanceBins(),
		"max_peaks":           t.GetMaxPeaks(),
		"search_window":       t.GetSearchWindow(),
		"waveform_scheme":     scheme,
		"noise_factor":        t.GetNoiseFactor(),
		"default_rise":        t.GetDefaultRise(),
		"default_decay":       t.GetDefaultDecay(),
		"addback_window":      t.GetAddbackWindow(),
	}
	ws.tuningMu.RUnlock()

	httputil.WriteJSONOK(w, resolved)
}

func (ws *WebServer) handleTuningUpdate(w http.ResponseWriter, r *http.Request) {
	var patch config.TuningConfig
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(body).Decode(&patch); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("decode tuning update: %v", err))
		return
	}
	if err := patch.Validate(); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid tuning update: %v", err))
		return
	}

	ws.tuningMu.Lock()
	mergeTuning(ws.tuning, &patch)
	ws.tuning.ApplyWaveformDefaults()
	ws.tuningMu.Unlock()

	monitoring.Logf("applied tuning update")
	ws.writeTuning(w)
}

// mergeTuning copies every field set in src over dst, leaving the rest.
func mergeTuning(dst, src *config.TuningConfig) {
	if src.FitMethod != nil {
		dst.FitMethod = src.FitMethod
	}
	if src.MaxIterations != nil {
		dst.MaxIterations = src.MaxIterations
	}
	if src.Tolerance != nil {
		dst.Tolerance = src.Tolerance
	}
	if src.DefaultShape != nil {
		dst.DefaultShape = src.DefaultShape
	}
	if src.FitHalfWidthBins != nil {
		dst.FitHalfWidthBins = src.FitHalfWidthBins
	}
	if src.MinProminence != nil {
		dst.MinProminence = src.MinProminence
	}
	if src.MinDistanceBins != nil {
		dst.MinDistanceBins = src.MinDistanceBins
	}
	if src.MaxPeaks != nil {
		dst.MaxPeaks = src.MaxPeaks
	}
	if src.SearchWindow != nil {
		dst.SearchWindow = src.SearchWindow
	}
	if src.WaveformScheme != nil {
		dst.WaveformScheme = src.WaveformScheme
	}
	if src.NoiseFactor != nil {
		dst.NoiseFactor = src.NoiseFactor
	}
	if src.DefaultRise != nil {
		dst.DefaultRise = src.DefaultRise
	}
	if src.DefaultDecay != nil {
		dst.DefaultDecay = src.DefaultDecay
	}
	if src.AddbackWindow != nil {
		dst.AddbackWindow = src.AddbackWindow
	}
}

// Tuning returns a snapshot of the live tuning config for use by analysis
// code. The returned value must not be mutated.
func (ws *WebServer) Tuning() *config.TuningConfig {
	ws.tuningMu.RLock()
	defer ws.tuningMu.RUnlock()
	snapshot := *ws.tuning
	return &snapshot
}
