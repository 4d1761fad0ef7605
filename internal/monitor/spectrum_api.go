package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"

	"github.com/gammalab-data/specfit/internal/httputil"
	"github.com/gammalab-data/specfit/internal/monitoring"
	"github.com/gammalab-data/specfit/internal/runinfo"
	"github.com/gammalab-data/specfit/internal/security"
	"github.com/gammalab-data/specfit/internal/spectro"
	storage "github.com/gammalab-data/specfit/internal/spectro/storage/sqlite"
)

// SpectrumPayload is the JSON form of the in-memory spectrum.
type SpectrumPayload struct {
	SessionID   string    `json:"session_id,omitempty"`
	Name        string    `json:"name"`
	Bins        int       `json:"bins"`
	RangeLo     float64   `json:"range_lo"`
	RangeHi     float64   `json:"range_hi"`
	TotalCounts float64   `json:"total_counts"`
	Energies    []float64 `json:"energies"`
	Counts      []float64 `json:"counts"`
}

// PeakPayload is the JSON form of one fitted peak. Uncertainties that could
// not be estimated are reported as zero since JSON has no NaN.
type PeakPayload struct {
	Shape       string  `json:"shape"`
	Centroid    float64 `json:"centroid"`
	CentroidErr float64 `json:"centroid_err"`
	Area        float64 `json:"area"`
	AreaErr     float64 `json:"area_err"`
	Chi2        float64 `json:"chi2"`
	NDF         int     `json:"ndf"`
	ReducedChi2 float64 `json:"reduced_chi2"`
	Converged   bool    `json:"converged"`
	RangeLo     float64 `json:"range_lo"`
	RangeHi     float64 `json:"range_hi"`
}

// jsonFloat zeroes NaN and infinities, which encoding/json rejects.
func jsonFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// handleSpectrum returns the currently loaded spectrum with its bin data.
func (ws *WebServer) handleSpectrum(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	ws.specMu.RLock()
	defer ws.specMu.RUnlock()

	s := ws.spectrum
	if s == nil {
		httputil.NotFound(w, "no spectrum loaded")
		return
	}

	lo, hi := s.Range()
	payload := SpectrumPayload{
		SessionID:   ws.sessionID,
		Name:        s.Name(),
		Bins:        s.NumBins(),
		RangeLo:     lo,
		RangeHi:     hi,
		TotalCounts: s.Integral(lo, hi),
		Energies:    make([]float64, s.NumBins()),
		Counts:      make([]float64, s.NumBins()),
	}
	for i := 0; i < s.NumBins(); i++ {
		payload.Energies[i] = s.BinCenter(i)
		payload.Counts[i] = s.At(i)
	}
	httputil.WriteJSONOK(w, payload)
}

// handlePeaks returns the fitted peaks of the current spectrum.
func (ws *WebServer) handlePeaks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	ws.specMu.RLock()
	defer ws.specMu.RUnlock()

	if ws.spectrum == nil {
		httputil.NotFound(w, "no spectrum loaded")
		return
	}

	payload := make([]PeakPayload, 0, len(ws.peaks))
	for _, p := range ws.peaks {
		payload = append(payload, peakToPayload(p))
	}
	httputil.WriteJSONOK(w, payload)
}

func peakToPayload(p FittedPeak) PeakPayload {
	pl := PeakPayload{
		Shape:       p.Model.Name(),
		Centroid:    jsonFloat(p.Model.Centroid()),
		CentroidErr: jsonFloat(p.Model.CentroidErr()),
		Area:        jsonFloat(p.Model.Area()),
		AreaErr:     jsonFloat(p.Model.AreaErr()),
	}
	if f := p.Model.TotalFunc(); f != nil {
		pl.RangeLo, pl.RangeHi = f.Range()
	}
	if res := p.Result; res != nil {
		pl.Chi2 = jsonFloat(res.Chi2)
		pl.NDF = res.NDF
		pl.ReducedChi2 = jsonFloat(res.ReducedChi2())
		pl.Converged = res.Converged
	}
	return pl
}

// handlePersist saves the current spectrum and its fits to the database as
// a new session. Each persist creates its own session row, so repeated
// persists of the same analysis stay distinguishable.
func (ws *WebServer) handlePersist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.sessions == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	ws.specMu.Lock()
	defer ws.specMu.Unlock()

	s := ws.spectrum
	if s == nil {
		httputil.NotFound(w, "no spectrum loaded")
		return
	}

	lo, hi := s.Range()
	sess := &storage.Session{
		RunNumber: runinfo.Get().Run,
		Source:    s.Name(),
		Bins:      s.NumBins(),
		RangeLo:   lo,
		RangeHi:   hi,
	}
	if err := ws.sessions.Save(sess); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("save session: %v", err))
		return
	}
	ws.sessionID = sess.SessionID

	saved := 0
	for _, p := range ws.peaks {
		if err := ws.fits.Insert(FitRow(sess.SessionID, p)); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("save fit: %v", err))
			return
		}
		saved++
	}

	monitoring.Logf("persisted session %s with %d fits", sess.SessionID, saved)
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":     "ok",
		"session_id": sess.SessionID,
		"fits":       saved,
	})
}

// FitRow converts a fitted peak into its storage row. The CLI and the
// persist endpoint share this mapping. Uncertainties stay NaN here; the
// store maps them to NULL.
func FitRow(sessionID string, p FittedPeak) *storage.Fit {
	rec := &storage.Fit{
		SessionID:   sessionID,
		Shape:       p.Model.Name(),
		Centroid:    p.Model.Centroid(),
		CentroidErr: p.Model.CentroidErr(),
		Area:        p.Model.Area(),
		AreaErr:     p.Model.AreaErr(),
		FWHM:        modelFWHM(p.Model),
		ParamsJSON:  namedParams(p.Model),
	}
	if f := p.Model.TotalFunc(); f != nil {
		rec.RangeLo, rec.RangeHi = f.Range()
	}
	if res := p.Result; res != nil {
		rec.Chi2 = res.Chi2
		rec.NDF = res.NDF
	}
	return rec
}

// modelFWHM returns the model's FWHM when the shape defines one, else NaN.
func modelFWHM(m spectro.PeakModel) float64 {
	if f, ok := m.(interface{ FWHM() float64 }); ok {
		return f.FWHM()
	}
	return math.NaN()
}

// namedParams encodes the model's parameter vector keyed by parameter name.
func namedParams(m spectro.PeakModel) json.RawMessage {
	f := m.TotalFunc()
	if f == nil {
		return nil
	}
	params := make(map[string]float64, f.NumParams())
	for i := 0; i < f.NumParams(); i++ {
		params[m.ParameterName(i)] = jsonFloat(f.Parameter(i))
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	return data
}

// handleExport writes the current spectrum as two-column text under the
// export directory. The filename query parameter is sanitized and the final
// path validated, so requests cannot write outside the export directory.
func (ws *WebServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "spectrum.txt"
	}
	filename = security.SanitizeFilename(filename)

	ws.specMu.RLock()
	s := ws.spectrum
	ws.specMu.RUnlock()
	if s == nil {
		httputil.NotFound(w, "no spectrum loaded")
		return
	}

	if err := ws.fs.MkdirAll(ws.exportDir, 0o755); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("create export dir: %v", err))
		return
	}

	path := filepath.Join(ws.exportDir, filename)
	if err := security.ValidatePathWithinDirectory(path, ws.exportDir); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid export path: %v", err))
		return
	}

	var buf bytes.Buffer
	writeSpectrumXY(&buf, s)
	if err := ws.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("write export: %v", err))
		return
	}

	monitoring.Logf("exported spectrum %q to %s", s.Name(), path)
	httputil.WriteJSONOK(w, map[string]string{
		"status": "ok",
		"path":   path,
	})
}

// writeSpectrumXY writes the two-column "x count" text form that ReadXY
// accepts, so exports round-trip.
func writeSpectrumXY(w io.Writer, s *spectro.Spectrum) {
	fmt.Fprintf(w, "# %s\n", s.Name())
	for i := 0; i < s.NumBins(); i++ {
		fmt.Fprintf(w, "%.10g %.10g\n", s.BinCenter(i), s.At(i))
	}
}
