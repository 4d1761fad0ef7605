package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammalab-data/specfit/internal/monitoring"
	"github.com/gammalab-data/specfit/internal/timeutil"
)

// StatsSnapshot represents a snapshot of current analysis activity.
type StatsSnapshot struct {
	SpectraLoaded int64
	FitsPerformed int64
	FitsFailed    int64
	PeaksFound    int64
	FitsPerMin    float64
	Timestamp     time.Time
}

// FitStats tracks analysis activity with thread-safe operations. The clock
// is injectable so uptime and rates are testable.
type FitStats struct {
	mu             sync.Mutex
	clock          timeutil.Clock
	spectraLoaded  int64
	fitsPerformed  int64
	fitsFailed     int64
	peaksFound     int64
	lastReset      time.Time
	startTime      time.Time
	latestSnapshot *StatsSnapshot
}

// NewFitStats creates a new FitStats instance. A nil clock falls back to the
// real clock.
func NewFitStats(clock timeutil.Clock) *FitStats {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	now := clock.Now()
	return &FitStats{
		clock:     clock,
		lastReset: now,
		startTime: now,
	}
}

// AddSpectrum increments the loaded-spectrum count.
func (fs *FitStats) AddSpectrum() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.spectraLoaded++
}

// AddFit increments the completed-fit count.
func (fs *FitStats) AddFit() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.fitsPerformed++
}

// AddFailedFit increments the failed-fit count.
func (fs *FitStats) AddFailedFit() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.fitsFailed++
}

// AddPeaks adds to the found-peak count.
func (fs *FitStats) AddPeaks(count int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.peaksFound += int64(count)
}

// GetAndReset returns current counters and resets them.
func (fs *FitStats) GetAndReset() (spectra, fits, failed, peaks int64, duration time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := fs.clock.Now()
	duration = now.Sub(fs.lastReset)
	spectra = fs.spectraLoaded
	fits = fs.fitsPerformed
	failed = fs.fitsFailed
	peaks = fs.peaksFound

	fs.spectraLoaded = 0
	fs.fitsPerformed = 0
	fs.fitsFailed = 0
	fs.peaksFound = 0
	fs.lastReset = now

	return
}

// LogStats logs formatted activity and stores a snapshot for the web
// interface. Quiet intervals produce no log line.
func (fs *FitStats) LogStats() {
	spectra, fits, failed, peaks, duration := fs.GetAndReset()
	if spectra == 0 && fits == 0 && failed == 0 {
		return
	}

	fitsPerMin := 0.0
	if duration > 0 {
		fitsPerMin = float64(fits) / duration.Minutes()
	}

	fs.mu.Lock()
	fs.latestSnapshot = &StatsSnapshot{
		SpectraLoaded: spectra,
		FitsPerformed: fits,
		FitsFailed:    failed,
		PeaksFound:    peaks,
		FitsPerMin:    fitsPerMin,
		Timestamp:     fs.clock.Now(),
	}
	fs.mu.Unlock()

	logMsg := fmt.Sprintf("analysis stats: %d spectra, %d fits (%.1f/min), %d peaks",
		spectra, fits, fitsPerMin, peaks)
	if failed > 0 {
		logMsg += fmt.Sprintf(", %d failed", failed)
	}
	monitoring.Logf("%s", logMsg)
}

// LogLoop periodically logs activity until the context is cancelled.
func (fs *FitStats) LogLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := fs.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			fs.LogStats()
		}
	}
}

// GetUptime returns the time since the stats were created.
func (fs *FitStats) GetUptime() time.Duration {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.clock.Since(fs.startTime)
}

// GetLatestSnapshot returns the most recent stats snapshot for the web
// interface.
func (fs *FitStats) GetLatestSnapshot() *StatsSnapshot {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.latestSnapshot == nil {
		return nil
	}
	// Return a copy to avoid race conditions
	snapshot := *fs.latestSnapshot
	return &snapshot
}

// FormatWithCommas formats a number with thousands separators.
func FormatWithCommas(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
