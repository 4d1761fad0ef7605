package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gammalab-data/specfit/internal/config"
	"github.com/gammalab-data/specfit/internal/db"
	"github.com/gammalab-data/specfit/internal/fsutil"
	"github.com/gammalab-data/specfit/internal/monitor"
	"github.com/gammalab-data/specfit/internal/runinfo"
	"github.com/gammalab-data/specfit/internal/spectro"
	"github.com/gammalab-data/specfit/internal/spectro/plotview"
	storage "github.com/gammalab-data/specfit/internal/spectro/storage/sqlite"
)

var (
	fitInput     string
	fitShape     string
	fitCentroids []float64
	fitConfig    string
	fitDBPath    string
	fitRun       int
	fitPNG       string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit peak shapes to a spectrum",
	Long: `Loads a two-column energy/count spectrum, finds peak regions (or takes
explicit centroids), fits the selected shape in each region, and prints a
report per peak. Results can be saved to sqlite and rendered to PNG.`,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVar(&fitInput, "input", "", "Spectrum file, two whitespace-separated columns: energy count (required)")
	fitCmd.Flags().StringVar(&fitShape, "shape", "", "Peak shape: gaussian or skewed (default from tuning config)")
	fitCmd.Flags().Float64SliceVar(&fitCentroids, "centroid", nil, "Fit around these centroids instead of searching")
	fitCmd.Flags().StringVar(&fitConfig, "config", "", "Tuning config JSON (built-in defaults when omitted)")
	fitCmd.Flags().StringVar(&fitDBPath, "db", "", "Save results to this sqlite database")
	fitCmd.Flags().IntVar(&fitRun, "run", 0, "Run number recorded with the saved session")
	fitCmd.Flags().StringVar(&fitPNG, "png", "", "Render the spectrum and fits to this PNG path")

	fitCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	tuning, err := loadTuning(fitConfig)
	if err != nil {
		return err
	}

	s, err := loadSpectrum(fitInput)
	if err != nil {
		return err
	}
	lo, hi := s.Range()
	slog.Info("loaded spectrum", "name", s.Name(), "bins", s.NumBins(),
		"range_lo", lo, "range_hi", hi, "counts", s.Integral(lo, hi))

	peaks, err := analyzeSpectrum(s, tuning, fitShape, fitCentroids, nil)
	if err != nil {
		return err
	}
	if len(peaks) == 0 {
		return fmt.Errorf("no peaks could be fitted in %s", fitInput)
	}

	for i, p := range peaks {
		flo, fhi := p.Model.TotalFunc().Range()
		fmt.Printf("Peak %d (%s over [%.1f, %.1f)):\n", i+1, p.Model.Name(), flo, fhi)
		if _, err := spectro.NewFitReport(p.Model).WriteTo(os.Stdout); err != nil {
			return err
		}
		fmt.Printf("Chi2/NDF = %.2f/%d", p.Result.Chi2, p.Result.NDF)
		if !p.Result.Converged {
			fmt.Print("  (not converged)")
		}
		fmt.Print("\n\n")
	}

	if fitDBPath != "" {
		sessionID, err := persistPeaks(fitDBPath, fitRun, s, peaks)
		if err != nil {
			return err
		}
		fmt.Printf("Saved session %s (%d fits)\n", sessionID, len(peaks))
	}

	if fitPNG != "" {
		if err := renderPNG(fitPNG, s, peaks); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", fitPNG)
	}

	return nil
}

// loadTuning reads the tuning config at path, or returns an empty config
// whose getters supply the built-in defaults.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// loadSpectrum reads a two-column energy/count file. The spectrum takes its
// name from the file's base name.
func loadSpectrum(path string) (*spectro.Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spectrum: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return spectro.ReadXY(name, f)
}

// analyzeSpectrum fits the chosen shape in every region, logging and skipping
// regions that cannot be seeded or fitted. A nil stats skips activity
// counting.
func analyzeSpectrum(s *spectro.Spectrum, tuning *config.TuningConfig, shape string, centroids []float64, stats *monitor.FitStats) ([]monitor.FittedPeak, error) {
	if shape == "" {
		shape = tuning.GetDefaultShape()
	}
	switch shape {
	case "gaussian", "skewed":
	default:
		return nil, fmt.Errorf("unknown shape %q (want gaussian or skewed)", shape)
	}

	fitter := tuning.NewFitter()
	var peaks []monitor.FittedPeak
	for _, region := range fitRegions(s, tuning, centroids) {
		lo, hi := region[0], region[1]

		var model spectro.PeakModel
		if shape == "skewed" {
			model = spectro.NewSkewedGaussian(lo, hi)
		} else {
			model = spectro.NewGaussian(lo, hi)
		}

		if err := model.Seed(s, lo, hi); err != nil {
			slog.Warn("seeding failed", "region_lo", lo, "region_hi", hi, "error", err)
			if stats != nil {
				stats.AddFailedFit()
			}
			continue
		}
		res, err := fitter.Fit(model, s)
		if err != nil {
			slog.Warn("fit failed", "region_lo", lo, "region_hi", hi, "error", err)
			if stats != nil {
				stats.AddFailedFit()
			}
			continue
		}
		if stats != nil {
			stats.AddFit()
		}
		peaks = append(peaks, monitor.FittedPeak{Model: model, Result: res})
	}
	return peaks, nil
}

// fitRegions returns the [lo, hi) windows to fit, centered on the explicit
// centroids when given and on searched candidates otherwise.
func fitRegions(s *spectro.Spectrum, tuning *config.TuningConfig, centroids []float64) [][2]float64 {
	half := tuning.GetFitHalfWidthBins() * s.BinWidth()

	if len(centroids) > 0 {
		regions := make([][2]float64, 0, len(centroids))
		for _, c := range centroids {
			regions = append(regions, clampRegion(s, c-half, c+half))
		}
		return regions
	}

	cands := spectro.SearchPeaks(s, tuning.SearchOptions())
	regions := make([][2]float64, 0, len(cands))
	for _, c := range cands {
		regions = append(regions, clampRegion(s, c.Energy-half, c.Energy+half))
	}
	return regions
}

func clampRegion(s *spectro.Spectrum, lo, hi float64) [2]float64 {
	slo, shi := s.Range()
	return [2]float64{math.Max(lo, slo), math.Min(hi, shi)}
}

// persistPeaks saves one session with a fit row per peak and returns the
// session ID.
func persistPeaks(dbPath string, run int, s *spectro.Spectrum, peaks []monitor.FittedPeak) (string, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		return "", err
	}

	if run > 0 {
		runinfo.Init(runinfo.New(run, -1))
	}

	lo, hi := s.Range()
	sess := &storage.Session{
		RunNumber: runinfo.Get().Run,
		Source:    s.Name(),
		Bins:      s.NumBins(),
		RangeLo:   lo,
		RangeHi:   hi,
	}
	if err := storage.NewSessionStore(database.DB).Save(sess); err != nil {
		return "", err
	}

	fits := storage.NewFitStore(database.DB)
	for _, p := range peaks {
		if err := fits.Insert(monitor.FitRow(sess.SessionID, p)); err != nil {
			return "", err
		}
	}
	return sess.SessionID, nil
}

// renderPNG draws the spectrum with every fitted curve on one plot.
func renderPNG(path string, s *spectro.Spectrum, peaks []monitor.FittedPeak) error {
	r := plotview.New(s.Name(), "Energy (keV)", "Counts")
	if err := r.AddSpectrum(s, s.Name()); err != nil {
		return err
	}
	for _, p := range peaks {
		if err := r.AddFit(p.Model); err != nil {
			return err
		}
	}
	return r.SavePNG(fsutil.OSFileSystem{}, path, plotview.DefaultWidth, plotview.DefaultHeight)
}
