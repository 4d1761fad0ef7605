package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/gammalab-data/specfit/internal/config"
	"github.com/gammalab-data/specfit/internal/db"
	"github.com/gammalab-data/specfit/internal/monitor"
	"github.com/gammalab-data/specfit/internal/runinfo"
	storage "github.com/gammalab-data/specfit/internal/spectro/storage/sqlite"
	"github.com/gammalab-data/specfit/internal/testutil"
)

// writeSpectrumFile writes a 200-bin spectrum with a gaussian peak at
// 100 keV (height 250, sigma 3) on a flat background of 40 counts.
func writeSpectrumFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cs137.txt")
	s := testutil.Spectrum(t, "cs137", 200, 0, 200, 40, testutil.Line{Height: 250, Centroid: 100, Sigma: 3})
	testutil.WriteXY(t, path, s)
	return path
}

func TestLoadSpectrum(t *testing.T) {
	path := writeSpectrumFile(t)

	s, err := loadSpectrum(path)
	if err != nil {
		t.Fatalf("loadSpectrum: %v", err)
	}

	if s.Name() != "cs137" {
		t.Errorf("Expected name cs137, got %s", s.Name())
	}
	if s.NumBins() != 200 {
		t.Errorf("Expected 200 bins, got %d", s.NumBins())
	}
	lo, hi := s.Range()
	if lo != 0 || hi != 200 {
		t.Errorf("Expected range [0, 200), got [%g, %g)", lo, hi)
	}
	if s.BinWidth() != 1.0 {
		t.Errorf("Expected bin width 1.0, got %g", s.BinWidth())
	}
}

func TestLoadSpectrum_MissingFile(t *testing.T) {
	if _, err := loadSpectrum(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestFitRegions_ExplicitCentroids(t *testing.T) {
	path := writeSpectrumFile(t)
	s, err := loadSpectrum(path)
	if err != nil {
		t.Fatalf("loadSpectrum: %v", err)
	}
	tuning := config.EmptyTuningConfig() // half width defaults to 15 bins

	regions := fitRegions(s, tuning, []float64{100, 5, 195})
	if len(regions) != 3 {
		t.Fatalf("Expected 3 regions, got %d", len(regions))
	}

	if regions[0] != [2]float64{85, 115} {
		t.Errorf("Expected region [85, 115], got %v", regions[0])
	}
	// Edge centroids clamp to the spectrum range
	if regions[1] != [2]float64{0, 20} {
		t.Errorf("Expected clamped region [0, 20], got %v", regions[1])
	}
	if regions[2] != [2]float64{180, 200} {
		t.Errorf("Expected clamped region [180, 200], got %v", regions[2])
	}
}

func TestFitRegions_Search(t *testing.T) {
	path := writeSpectrumFile(t)
	s, err := loadSpectrum(path)
	if err != nil {
		t.Fatalf("loadSpectrum: %v", err)
	}

	regions := fitRegions(s, config.EmptyTuningConfig(), nil)
	if len(regions) == 0 {
		t.Fatal("Expected at least one searched region")
	}
	if regions[0][0] >= 100 || regions[0][1] <= 100 {
		t.Errorf("Expected first region to contain the planted peak, got %v", regions[0])
	}
}

func TestAnalyzeSpectrum_RecoversPlantedPeak(t *testing.T) {
	path := writeSpectrumFile(t)
	s, err := loadSpectrum(path)
	if err != nil {
		t.Fatalf("loadSpectrum: %v", err)
	}

	stats := monitor.NewFitStats(nil)
	peaks, err := analyzeSpectrum(s, config.EmptyTuningConfig(), "", nil, stats)
	if err != nil {
		t.Fatalf("analyzeSpectrum: %v", err)
	}
	if len(peaks) != 1 {
		t.Fatalf("Expected 1 fitted peak, got %d", len(peaks))
	}

	p := peaks[0]
	if p.Model.Name() != "gaussian" {
		t.Errorf("Expected default gaussian shape, got %s", p.Model.Name())
	}
	if c := p.Model.Centroid(); math.Abs(c-100) > 0.5 {
		t.Errorf("Expected centroid near 100, got %g", c)
	}
	if !p.Result.Converged {
		t.Error("Expected a converged fit on clean synthetic data")
	}

	_, fits, failed, _, _ := stats.GetAndReset()
	if fits != 1 || failed != 0 {
		t.Errorf("Expected stats (1 fit, 0 failed), got (%d, %d)", fits, failed)
	}
}

func TestAnalyzeSpectrum_UnknownShape(t *testing.T) {
	path := writeSpectrumFile(t)
	s, err := loadSpectrum(path)
	if err != nil {
		t.Fatalf("loadSpectrum: %v", err)
	}

	if _, err := analyzeSpectrum(s, config.EmptyTuningConfig(), "lorentzian", nil, nil); err == nil {
		t.Error("Expected error for unknown shape")
	}
}

func TestRunFit_EndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fit.db")

	origInput, origShape, origCentroids := fitInput, fitShape, fitCentroids
	origConfig, origDB, origRun, origPNG := fitConfig, fitDBPath, fitRun, fitPNG
	defer func() {
		fitInput, fitShape, fitCentroids = origInput, origShape, origCentroids
		fitConfig, fitDBPath, fitRun, fitPNG = origConfig, origDB, origRun, origPNG
	}()
	t.Cleanup(runinfo.Reset)

	fitInput = writeSpectrumFile(t)
	fitShape = ""
	fitCentroids = nil
	fitConfig = ""
	fitDBPath = dbPath
	fitRun = 10500
	fitPNG = ""

	if err := runFit(nil, nil); err != nil {
		t.Fatalf("runFit: %v", err)
	}

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open result db: %v", err)
	}
	defer database.Close()

	sessions, err := storage.NewSessionStore(database.DB).List(10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	if sessions[0].RunNumber != 10500 {
		t.Errorf("Expected run 10500, got %d", sessions[0].RunNumber)
	}
	if sessions[0].Source != "cs137" {
		t.Errorf("Expected source cs137, got %s", sessions[0].Source)
	}

	fits, err := storage.NewFitStore(database.DB).ListBySession(sessions[0].SessionID)
	if err != nil {
		t.Fatalf("list fits: %v", err)
	}
	if len(fits) != 1 {
		t.Fatalf("Expected 1 fit, got %d", len(fits))
	}
	if fits[0].Shape != "gaussian" {
		t.Errorf("Expected gaussian fit, got %s", fits[0].Shape)
	}
	if math.Abs(fits[0].Centroid-100) > 0.5 {
		t.Errorf("Expected centroid near 100, got %g", fits[0].Centroid)
	}
}

func TestRunFit_FlatSpectrumFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.txt")
	testutil.WriteXY(t, path, testutil.Spectrum(t, "flat", 50, 0, 50, 40))

	origInput, origDB := fitInput, fitDBPath
	defer func() { fitInput, fitDBPath = origInput, origDB }()
	fitInput = path
	fitDBPath = ""

	if err := runFit(nil, nil); err == nil {
		t.Error("Expected error when no peaks can be fitted")
	}
}

func TestRunPeaks(t *testing.T) {
	origInput, origConfig := peaksInput, peaksConfig
	defer func() { peaksInput, peaksConfig = origInput, origConfig }()

	peaksInput = writeSpectrumFile(t)
	peaksConfig = ""
	if err := runPeaks(nil, nil); err != nil {
		t.Errorf("runPeaks: %v", err)
	}

	peaksInput = filepath.Join(t.TempDir(), "missing.txt")
	if err := runPeaks(nil, nil); err == nil {
		t.Error("Expected error for missing input")
	}
}
