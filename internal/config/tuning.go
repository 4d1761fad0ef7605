// Package config loads analysis tuning from JSON files. Every field is
// optional; the Get* accessors fall back to the built-in defaults so a
// partial file only overrides what it names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gammalab-data/specfit/internal/detector"
	"github.com/gammalab-data/specfit/internal/spectro"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for analysis parameters. The
// schema matches the /api/tuning endpoint so the same JSON serves both
// startup configuration and runtime updates.
type TuningConfig struct {
	// Fit params
	FitMethod     *string  `json:"fit_method,omitempty"` // nelder-mead | lbfgs | gradient
	MaxIterations *int     `json:"max_iterations,omitempty"`
	Tolerance     *float64 `json:"tolerance,omitempty"`
	DefaultShape  *string  `json:"default_shape,omitempty"` // gaussian | skewed
	// FitHalfWidthBins is the half-width of the fit range placed around a
	// requested centroid, in bins.
	FitHalfWidthBins *float64 `json:"fit_half_width_bins,omitempty"`

	// Peak search params
	MinProminence   *float64 `json:"min_prominence,omitempty"`
	MinDistanceBins *int     `json:"min_distance_bins,omitempty"`
	MaxPeaks        *int     `json:"max_peaks,omitempty"`
	SearchWindow    *int     `json:"search_window,omitempty"`

	// Waveform params
	WaveformScheme *string  `json:"waveform_scheme,omitempty"` // quick | fallback | slow
	NoiseFactor    *float64 `json:"noise_factor,omitempty"`
	DefaultRise    *float64 `json:"default_rise,omitempty"`
	DefaultDecay   *float64 `json:"default_decay,omitempty"`

	// Detector params
	AddbackWindow *float64 `json:"addback_window,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// carry a .json extension and stay under the max file size. Fields
// omitted from the JSON keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into an empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and common parent
// directories. Panics if the file cannot be loaded, intended for test
// setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

var validFitMethods = map[string]bool{
	"nelder-mead":      true,
	"lbfgs":            true,
	"gradient":         true,
	"gradient-descent": true,
}

var validShapes = map[string]bool{
	"gaussian": true,
	"skewed":   true,
}

var validWaveformSchemes = map[string]bool{
	"quick":    true,
	"fallback": true,
	"slow":     true,
}

// Validate checks that the configuration values are in range.
func (c *TuningConfig) Validate() error {
	if c.FitMethod != nil && !validFitMethods[*c.FitMethod] {
		return fmt.Errorf("unknown fit_method %q", *c.FitMethod)
	}
	if c.MaxIterations != nil && *c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", *c.MaxIterations)
	}
	if c.Tolerance != nil && *c.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %g", *c.Tolerance)
	}
	if c.DefaultShape != nil && !validShapes[*c.DefaultShape] {
		return fmt.Errorf("unknown default_shape %q", *c.DefaultShape)
	}
	if c.FitHalfWidthBins != nil && *c.FitHalfWidthBins <= 0 {
		return fmt.Errorf("fit_half_width_bins must be positive, got %g", *c.FitHalfWidthBins)
	}
	if c.MinProminence != nil && *c.MinProminence < 0 {
		return fmt.Errorf("min_prominence must be non-negative, got %g", *c.MinProminence)
	}
	if c.MinDistanceBins != nil && *c.MinDistanceBins < 0 {
		return fmt.Errorf("min_distance_bins must be non-negative, got %d", *c.MinDistanceBins)
	}
	if c.MaxPeaks != nil && *c.MaxPeaks < 0 {
		return fmt.Errorf("max_peaks must be non-negative, got %d", *c.MaxPeaks)
	}
	if c.SearchWindow != nil && *c.SearchWindow < 0 {
		return fmt.Errorf("search_window must be non-negative, got %d", *c.SearchWindow)
	}
	if c.WaveformScheme != nil && !validWaveformSchemes[*c.WaveformScheme] {
		return fmt.Errorf("unknown waveform_scheme %q", *c.WaveformScheme)
	}
	if c.NoiseFactor != nil && *c.NoiseFactor <= 0 {
		return fmt.Errorf("noise_factor must be positive, got %g", *c.NoiseFactor)
	}
	if c.DefaultRise != nil && *c.DefaultRise <= 0 {
		return fmt.Errorf("default_rise must be positive, got %g", *c.DefaultRise)
	}
	if c.DefaultDecay != nil && *c.DefaultDecay <= 0 {
		return fmt.Errorf("default_decay must be positive, got %g", *c.DefaultDecay)
	}
	if c.AddbackWindow != nil && *c.AddbackWindow < 0 {
		return fmt.Errorf("addback_window must be non-negative, got %g", *c.AddbackWindow)
	}
	return nil
}

// GetFitMethod returns the configured minimizer, or Nelder-Mead.
func (c *TuningConfig) GetFitMethod() spectro.Method {
	if c.FitMethod == nil {
		return spectro.MethodNelderMead
	}
	return spectro.MethodFromString(*c.FitMethod)
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *TuningConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 2000
	}
	return *c.MaxIterations
}

// GetTolerance returns the tolerance value or the default.
func (c *TuningConfig) GetTolerance() float64 {
	if c.Tolerance == nil {
		return 1e-10
	}
	return *c.Tolerance
}

// GetDefaultShape returns the default_shape value or "gaussian".
func (c *TuningConfig) GetDefaultShape() string {
	if c.DefaultShape == nil {
		return "gaussian"
	}
	return *c.DefaultShape
}

// GetFitHalfWidthBins returns the fit_half_width_bins value or the default.
func (c *TuningConfig) GetFitHalfWidthBins() float64 {
	if c.FitHalfWidthBins == nil {
		return 15.0
	}
	return *c.FitHalfWidthBins
}

// GetMinProminence returns the min_prominence value or the default.
func (c *TuningConfig) GetMinProminence() float64 {
	if c.MinProminence == nil {
		return 5.0
	}
	return *c.MinProminence
}

// GetMinDistanceBins returns the min_distance_bins value or the default.
func (c *TuningConfig) GetMinDistanceBins() int {
	if c.MinDistanceBins == nil {
		return 3
	}
	return *c.MinDistanceBins
}

// GetMaxPeaks returns the max_peaks value or the default (0, uncapped).
func (c *TuningConfig) GetMaxPeaks() int {
	if c.MaxPeaks == nil {
		return 0
	}
	return *c.MaxPeaks
}

// GetSearchWindow returns the search_window value or 0, which lets the
// search fall back to strict nearest-neighbor comparison.
func (c *TuningConfig) GetSearchWindow() int {
	if c.SearchWindow == nil {
		return 0
	}
	return *c.SearchWindow
}

// GetWaveformScheme maps the waveform_scheme value to a detector scheme,
// defaulting to quick-with-fallback.
func (c *TuningConfig) GetWaveformScheme() detector.FitScheme {
	if c.WaveformScheme == nil {
		return detector.SchemeQuickFallback
	}
	switch *c.WaveformScheme {
	case "quick":
		return detector.SchemeQuick
	case "slow":
		return detector.SchemeSlow
	default:
		return detector.SchemeQuickFallback
	}
}

// GetNoiseFactor returns the noise_factor value or the default.
func (c *TuningConfig) GetNoiseFactor() float64 {
	if c.NoiseFactor == nil {
		return 4.0
	}
	return *c.NoiseFactor
}

// GetDefaultRise returns the default_rise value or the default.
func (c *TuningConfig) GetDefaultRise() float64 {
	if c.DefaultRise == nil {
		return 20.0
	}
	return *c.DefaultRise
}

// GetDefaultDecay returns the default_decay value or the default.
func (c *TuningConfig) GetDefaultDecay() float64 {
	if c.DefaultDecay == nil {
		return 4600.0
	}
	return *c.DefaultDecay
}

// GetAddbackWindow returns the addback_window value or the default.
func (c *TuningConfig) GetAddbackWindow() float64 {
	if c.AddbackWindow == nil {
		return 200.0
	}
	return *c.AddbackWindow
}

// NewFitter builds a minimizer configured from the fit params.
func (c *TuningConfig) NewFitter() *spectro.Fitter {
	ft := spectro.NewFitter()
	ft.Method = c.GetFitMethod()
	ft.MaxIterations = c.GetMaxIterations()
	ft.Tolerance = c.GetTolerance()
	return ft
}

// SearchOptions builds peak-search options from the search params.
func (c *TuningConfig) SearchOptions() spectro.SearchOptions {
	return spectro.SearchOptions{
		MinProminence:   c.GetMinProminence(),
		MinDistanceBins: c.GetMinDistanceBins(),
		MaxPeaks:        c.GetMaxPeaks(),
		Window:          c.GetSearchWindow(),
	}
}

// ApplyWaveformDefaults pushes the waveform knobs into the detector
// package's shared seeds so subsequent pulse fits pick them up.
func (c *TuningConfig) ApplyWaveformDefaults() {
	detector.NoiseFactor = c.GetNoiseFactor()
	detector.DefaultRise = c.GetDefaultRise()
	detector.DefaultDecay = c.GetDefaultDecay()
}
