// Package monitor serves the counting-house HTTP interface: a status page,
// a JSON API over the analysis database, live spectrum and residual charts,
// and runtime tuning control.
package monitor

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gammalab-data/specfit/internal/config"
	"github.com/gammalab-data/specfit/internal/db"
	"github.com/gammalab-data/specfit/internal/fsutil"
	"github.com/gammalab-data/specfit/internal/monitoring"
	"github.com/gammalab-data/specfit/internal/spectro"
	storage "github.com/gammalab-data/specfit/internal/spectro/storage/sqlite"
)

//go:embed status.html
var statusHTML embed.FS

// FittedPeak pairs a fitted model with the minimization summary that
// produced it. Result may be nil for peaks that were seeded but never run
// through the minimizer.
type FittedPeak struct {
	Model  spectro.PeakModel
	Result *spectro.FitResult
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	// Address is the listen address, e.g. ":8089".
	Address string
	// Stats collects analysis counters. A fresh FitStats is created when nil.
	Stats *FitStats
	// DB backs the /api/sessions, /api/fits and /api/runs endpoints and the
	// persist operation. All of those report errors when nil.
	DB *db.DB
	// Tuning is the live tuning state served and updated by /api/tuning.
	// An empty config (all defaults) is used when nil.
	Tuning *config.TuningConfig
	// FileSystem receives spectrum exports. Defaults to the OS filesystem.
	FileSystem fsutil.FileSystem
	// ExportDir is where /api/export writes spectrum files.
	ExportDir string
	// ChartTheme is the echarts theme name, "dark" by default.
	ChartTheme string
}

// WebServer handles the HTTP monitoring interface for spectrum analysis.
type WebServer struct {
	address    string
	stats      *FitStats
	server     *http.Server
	db         *db.DB
	sessions   *storage.SessionStore
	fits       *storage.FitStore
	runs       *storage.RunStore
	fs         fsutil.FileSystem
	exportDir  string
	chartTheme string

	tuningMu sync.RWMutex
	tuning   *config.TuningConfig

	specMu    sync.RWMutex
	spectrum  *spectro.Spectrum
	peaks     []FittedPeak
	sessionID string // set by the last persist, cleared on SetSpectrum
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(cfg WebServerConfig) *WebServer {
	ws := &WebServer{
		address:    cfg.Address,
		stats:      cfg.Stats,
		db:         cfg.DB,
		tuning:     cfg.Tuning,
		fs:         cfg.FileSystem,
		exportDir:  cfg.ExportDir,
		chartTheme: cfg.ChartTheme,
	}
	if ws.stats == nil {
		ws.stats = NewFitStats(nil)
	}
	if ws.tuning == nil {
		ws.tuning = config.EmptyTuningConfig()
	}
	if ws.fs == nil {
		ws.fs = fsutil.OSFileSystem{}
	}
	if ws.exportDir == "" {
		ws.exportDir = "exports"
	}
	if ws.chartTheme == "" {
		ws.chartTheme = "dark"
	}
	if ws.db != nil {
		ws.sessions = storage.NewSessionStore(ws.db.DB)
		ws.fits = storage.NewFitStore(ws.db.DB)
		ws.runs = storage.NewRunStore(ws.db.DB)
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// Start runs the HTTP server until the context is cancelled, then shuts it
// down gracefully. A listen failure is returned immediately.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("monitor listening on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("monitor server: %w", err)
	case <-ctx.Done():
	}

	monitoring.Logf("shutting down monitor server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("monitor shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("monitor force close error: %v", err)
		}
	}
	return nil
}

// Close immediately closes the underlying HTTP server.
func (ws *WebServer) Close() error {
	return ws.server.Close()
}

// SetSpectrum installs the spectrum and fitted peaks the live endpoints and
// charts serve. Any session association from a previous persist is cleared.
func (ws *WebServer) SetSpectrum(s *spectro.Spectrum, peaks []FittedPeak) {
	ws.specMu.Lock()
	ws.spectrum = s
	ws.peaks = peaks
	ws.sessionID = ""
	ws.specMu.Unlock()

	if s != nil {
		ws.stats.AddSpectrum()
		ws.stats.AddPeaks(len(peaks))
	}
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/health", ws.handleHealth)

	mux.HandleFunc("/api/sessions", ws.handleSessions)
	mux.HandleFunc("/api/fits", ws.handleFits)
	mux.HandleFunc("/api/runs", ws.handleRuns)

	mux.HandleFunc("/api/spectrum", ws.handleSpectrum)
	mux.HandleFunc("/api/peaks", ws.handlePeaks)
	mux.HandleFunc("/api/persist", ws.handlePersist)
	mux.HandleFunc("/api/export", ws.handleExport)

	mux.HandleFunc("/api/tuning", ws.handleTuning)

	mux.HandleFunc("/charts/spectrum", ws.handleSpectrumChart)
	mux.HandleFunc("/charts/residuals", ws.handleResidualsChart)

	return mux
}

// handleHealth returns service health status.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status": "ok", "service": "specfit-monitor", "timestamp": "%s"}`,
		time.Now().Format(time.RFC3339))
}

// handleStatus renders the HTML status page.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	tmpl, err := template.ParseFS(statusHTML, "status.html")
	if err != nil {
		http.Error(w, fmt.Sprintf("template error: %v", err), http.StatusInternalServerError)
		return
	}

	dbState := "not configured"
	if ws.db != nil {
		dbState = "connected"
	}

	ws.specMu.RLock()
	specDesc := "none loaded"
	totalCounts := "0"
	peakCount := len(ws.peaks)
	sessionID := ws.sessionID
	if ws.spectrum != nil {
		lo, hi := ws.spectrum.Range()
		specDesc = fmt.Sprintf("%s: %d bins over [%g, %g) keV",
			ws.spectrum.Name(), ws.spectrum.NumBins(), lo, hi)
		totalCounts = FormatWithCommas(int64(ws.spectrum.Integral(lo, hi)))
	}
	ws.specMu.RUnlock()

	data := struct {
		Address     string
		Database    string
		Uptime      string
		Spectrum    string
		TotalCounts string
		PeakCount   int
		SessionID   string
		Snapshot    *StatsSnapshot
	}{
		Address:     ws.address,
		Database:    dbState,
		Uptime:      ws.stats.GetUptime().Round(time.Second).String(),
		Spectrum:    specDesc,
		TotalCounts: totalCounts,
		PeakCount:   peakCount,
		SessionID:   sessionID,
		Snapshot:    ws.stats.GetLatestSnapshot(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		monitoring.Logf("status template execute error: %v", err)
	}
}
