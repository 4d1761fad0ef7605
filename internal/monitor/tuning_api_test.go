package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gammalab-data/specfit/internal/config"
	"github.com/gammalab-data/specfit/internal/detector"
)

func getTuning(t *testing.T, mux *http.ServeMux) map[string]interface{} {
	t.Helper()
	req, _ := http.NewRequest("GET", "/api/tuning", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("tuning GET returned %d: %s", rr.Code, rr.Body.String())
	}
	var got map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode tuning: %v", err)
	}
	return got
}

func TestTuningGet_Defaults(t *testing.T) {
	server := NewWebServer(WebServerConfig{Address: ":0"})
	got := getTuning(t, server.setupRoutes())

	// JSON numbers decode as float64.
	want := map[string]interface{}{
		"fit_method":          "nelder-mead",
		"max_iterations":      float64(2000),
		"tolerance":           1e-10,
		"default_shape":       "gaussian",
		"fit_half_width_bins": 15.0,
		"min_prominence":      5.0,
		"min_distance_bins":   float64(3),
		"max_peaks":           float64(0),
		"search_window":       float64(0),
		"waveform_scheme":     "fallback",
		"noise_factor":        4.0,
		"default_rise":        20.0,
		"default_decay":       4600.0,
		"addback_window":      200.0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tuning defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestTuningPost_PartialUpdate(t *testing.T) {
	restoreWaveformDefaults(t)

	server := NewWebServer(WebServerConfig{Address: ":0"})
	mux := server.setupRoutes()

	body := `{"fit_method": "lbfgs", "max_iterations": 500}`
	req, _ := http.NewRequest("POST", "/api/tuning", strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("tuning POST returned %d: %s", rr.Code, rr.Body.String())
	}

	got := getTuning(t, mux)
	if got["fit_method"] != "lbfgs" {
		t.Errorf("fit_method = %v, want lbfgs", got["fit_method"])
	}
	if got["max_iterations"] != float64(500) {
		t.Errorf("max_iterations = %v, want 500", got["max_iterations"])
	}
	// Untouched fields keep their defaults.
	if got["default_shape"] != "gaussian" {
		t.Errorf("default_shape = %v, want gaussian", got["default_shape"])
	}
	if got["tolerance"] != 1e-10 {
		t.Errorf("tolerance = %v, want 1e-10", got["tolerance"])
	}
}

func TestTuningPost_AppliesWaveformDefaults(t *testing.T) {
	restoreWaveformDefaults(t)

	server := NewWebServer(WebServerConfig{Address: ":0"})
	mux := server.setupRoutes()

	body := `{"default_rise": 35, "noise_factor": 6}`
	req, _ := http.NewRequest("POST", "/api/tuning", strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("tuning POST returned %d: %s", rr.Code, rr.Body.String())
	}

	if detector.DefaultRise != 35 {
		t.Errorf("detector.DefaultRise = %g, want 35", detector.DefaultRise)
	}
	if detector.NoiseFactor != 6 {
		t.Errorf("detector.NoiseFactor = %g, want 6", detector.NoiseFactor)
	}
}

func TestTuningPost_RejectsInvalidValues(t *testing.T) {
	server := NewWebServer(WebServerConfig{Address: ":0"})
	mux := server.setupRoutes()

	cases := []string{
		`{"fit_method": "bogus"}`,
		`{"max_iterations": -5}`,
		`{not json`,
	}
	for _, body := range cases {
		req, _ := http.NewRequest("POST", "/api/tuning", strings.NewReader(body))
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("tuning POST %q returned %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
	}

	// Rejected updates must not leak into the live config.
	got := getTuning(t, mux)
	if got["fit_method"] != "nelder-mead" {
		t.Errorf("fit_method = %v after rejected update, want nelder-mead", got["fit_method"])
	}
}

func TestMergeTuning(t *testing.T) {
	method := "lbfgs"
	iters := 750
	src := &config.TuningConfig{FitMethod: &method, MaxIterations: &iters}
	base := config.EmptyTuningConfig()
	mergeTuning(base, src)

	if base.FitMethod == nil || *base.FitMethod != "lbfgs" {
		t.Error("FitMethod not merged")
	}
	if base.MaxIterations == nil || *base.MaxIterations != 750 {
		t.Error("MaxIterations not merged")
	}
	if base.Tolerance != nil {
		t.Error("unset fields must stay nil")
	}
}

// restoreWaveformDefaults snapshots the detector package seeds and restores
// them when the test finishes, since tuning updates write through to them.
func restoreWaveformDefaults(t *testing.T) {
	t.Helper()
	noise, rise, decay := detector.NoiseFactor, detector.DefaultRise, detector.DefaultDecay
	t.Cleanup(func() {
		detector.NoiseFactor, detector.DefaultRise, detector.DefaultDecay = noise, rise, decay
	})
}
