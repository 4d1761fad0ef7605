package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gammalab-data/specfit/internal/spectro"
)

var (
	peaksInput  string
	peaksConfig string
)

var peaksCmd = &cobra.Command{
	Use:   "peaks",
	Short: "List peak candidates in a spectrum",
	Long: `Searches a spectrum for local maxima that survive the prominence and
spacing filters, and lists them without fitting.`,
	RunE: runPeaks,
}

func init() {
	peaksCmd.Flags().StringVar(&peaksInput, "input", "", "Spectrum file (required)")
	peaksCmd.Flags().StringVar(&peaksConfig, "config", "", "Tuning config JSON (built-in defaults when omitted)")

	peaksCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(peaksCmd)
}

func runPeaks(cmd *cobra.Command, args []string) error {
	tuning, err := loadTuning(peaksConfig)
	if err != nil {
		return err
	}
	s, err := loadSpectrum(peaksInput)
	if err != nil {
		return err
	}

	cands := spectro.SearchPeaks(s, tuning.SearchOptions())
	if len(cands) == 0 {
		fmt.Println("No peaks found")
		return nil
	}

	fmt.Printf("Found %d peak(s) in %s:\n\n", len(cands), s.Name())
	fmt.Printf("%6s %12s %12s %12s %10s\n", "bin", "energy", "height", "prominence", "width")
	for _, c := range cands {
		fmt.Printf("%6d %12.2f %12.1f %12.1f %10.2f\n",
			c.Bin, c.Energy, c.Height, c.Prominence, c.Width)
	}
	return nil
}
