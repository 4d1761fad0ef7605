// Package testutil provides shared spectrum fixtures.
//
// Analysis tests across the repo plant gaussian lines with known parameters
// and then assert that searching, fitting and reporting recover them. This
// package centralises the planting so the expected numbers live next to the
// assertions instead of in per-package copies.
package testutil

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/gammalab-data/specfit/internal/spectro"
)

// Line is a gaussian component planted into a synthetic spectrum.
type Line struct {
	Height   float64
	Centroid float64
	Sigma    float64
}

// Spectrum builds a named spectrum with the given lines on a flat background.
func Spectrum(t *testing.T, name string, bins int, lo, hi, background float64, lines ...Line) *spectro.Spectrum {
	t.Helper()

	s, err := spectro.NewSpectrum(name, bins, lo, hi)
	if err != nil {
		t.Fatalf("new spectrum: %v", err)
	}
	for i := 0; i < s.NumBins(); i++ {
		x := s.BinCenter(i)
		y := background
		for _, l := range lines {
			d := (x - l.Centroid) / l.Sigma
			y += l.Height * math.Exp(-0.5*d*d)
		}
		s.SetAt(i, y)
	}
	return s
}

// WriteXY writes the spectrum to path as two-column text, one
// "center count" pair per line, the format spectro.ReadXY parses.
func WriteXY(t *testing.T, path string, s *spectro.Spectrum) {
	t.Helper()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", s.Name())
	for i := 0; i < s.NumBins(); i++ {
		fmt.Fprintf(&buf, "%.10g %.10g\n", s.BinCenter(i), s.At(i))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write spectrum file: %v", err)
	}
}
