package monitor

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gammalab-data/specfit/internal/httputil"
	storage "github.com/gammalab-data/specfit/internal/spectro/storage/sqlite"
)

// parseLimit reads the limit query parameter, falling back to def and
// ignoring values outside (0, max].
func parseLimit(r *http.Request, def, max int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= max {
			limit = v
		}
	}
	return limit
}

// handleSessions returns recent analysis sessions, newest first.
// Query params: limit (optional, default 50, max 500).
func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.sessions == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	limit := parseLimit(r, 50, 500)
	sessions, err := ws.sessions.List(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list sessions: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessions)
}

// handleFits returns the fits of one session ordered by centroid.
// Query params: session_id (required).
func (ws *WebServer) handleFits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.fits == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httputil.BadRequest(w, "missing 'session_id' parameter")
		return
	}

	fits, err := ws.fits.ListBySession(sessionID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list fits: %v", err))
		return
	}

	// Uncertainties stored as NULL come back as NaN, which encoding/json
	// rejects; report those as zero.
	out := make([]storage.Fit, len(fits))
	for i, f := range fits {
		out[i] = *f
		out[i].CentroidErr = jsonFloat(f.CentroidErr)
		out[i].AreaErr = jsonFloat(f.AreaErr)
		out[i].FWHM = jsonFloat(f.FWHM)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// handleRuns returns recent run descriptors, newest run first.
// Query params: limit (optional, default 50, max 500).
func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.runs == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	limit := parseLimit(r, 50, 500)
	runs, err := ws.runs.List(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list runs: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}
