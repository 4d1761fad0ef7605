package spectro

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Spectrum is a uniformly binned histogram of counts over [lo, hi). Bin 0
// covers [lo, lo+width); values at or above hi are dropped on Fill.
type Spectrum struct {
	name   string
	lo, hi float64
	counts []float64
}

// NewSpectrum constructs an empty spectrum with nbins bins over [lo, hi).
func NewSpectrum(name string, nbins int, lo, hi float64) (*Spectrum, error) {
	if nbins <= 0 {
		return nil, fmt.Errorf("spectrum %q: bin count must be positive, got %d", name, nbins)
	}
	if hi <= lo {
		return nil, fmt.Errorf("spectrum %q: range [%g, %g) is empty", name, lo, hi)
	}
	return &Spectrum{
		name:   name,
		lo:     lo,
		hi:     hi,
		counts: make([]float64, nbins),
	}, nil
}

// Name returns the spectrum identifier.
func (s *Spectrum) Name() string { return s.name }

// NumBins returns the bin count.
func (s *Spectrum) NumBins() int { return len(s.counts) }

// Range returns the covered interval [lo, hi).
func (s *Spectrum) Range() (lo, hi float64) { return s.lo, s.hi }

// BinWidth returns the uniform bin width.
func (s *Spectrum) BinWidth() float64 {
	return (s.hi - s.lo) / float64(len(s.counts))
}

// FindBin returns the bin index containing x: -1 below range, NumBins() at
// or above it.
func (s *Spectrum) FindBin(x float64) int {
	if x < s.lo {
		return -1
	}
	if x >= s.hi {
		return len(s.counts)
	}
	return int((x - s.lo) / s.BinWidth())
}

// BinCenter returns the center coordinate of bin i.
func (s *Spectrum) BinCenter(i int) float64 {
	return s.lo + (float64(i)+0.5)*s.BinWidth()
}

// At returns the count in bin i, or 0 when i is out of range.
func (s *Spectrum) At(i int) float64 {
	if i < 0 || i >= len(s.counts) {
		return 0
	}
	return s.counts[i]
}

// SetAt overwrites the count in bin i; out-of-range indices are ignored.
func (s *Spectrum) SetAt(i int, v float64) {
	if i < 0 || i >= len(s.counts) {
		return
	}
	s.counts[i] = v
}

// Fill adds one count at x. Values outside the range are dropped.
func (s *Spectrum) Fill(x float64) { s.FillW(x, 1) }

// FillW adds a weighted count at x. Values outside the range are dropped.
func (s *Spectrum) FillW(x, w float64) {
	i := s.FindBin(x)
	if i < 0 || i >= len(s.counts) {
		return
	}
	s.counts[i] += w
}

// Integral sums the counts of all bins whose centers lie inside [lo, hi).
func (s *Spectrum) Integral(lo, hi float64) float64 {
	_, ys := s.Slice(lo, hi)
	return floats.Sum(ys)
}

// MaxBin returns the index and count of the tallest bin. Ties resolve to the
// lowest index.
func (s *Spectrum) MaxBin() (bin int, count float64) {
	bin = floats.MaxIdx(s.counts)
	return bin, s.counts[bin]
}

// Slice returns the bin centers and counts of the subrange [lo, hi), the
// form the chi-square driver consumes.
func (s *Spectrum) Slice(lo, hi float64) (xs, ys []float64) {
	for i := range s.counts {
		if c := s.BinCenter(i); c >= lo && c < hi {
			xs = append(xs, c)
			ys = append(ys, s.counts[i])
		}
	}
	return xs, ys
}

// ReadXY parses a two-column text spectrum: one "coordinate count" pair per
// line, whitespace separated, '#' starting a comment. Coordinates must be
// ascending and uniformly spaced; they are taken as bin centers.
func ReadXY(name string, r io.Reader) (*Spectrum, error) {
	var xs, ys []float64
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want coordinate and count, got %q", lineNo, line)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad coordinate %q: %w", lineNo, fields[0], err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad count %q: %w", lineNo, fields[1], err)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read spectrum: %w", err)
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("spectrum needs at least 2 bins, got %d", len(xs))
	}

	width := xs[1] - xs[0]
	if width <= 0 {
		return nil, fmt.Errorf("coordinates must be ascending, got %g then %g", xs[0], xs[1])
	}
	for i := 1; i < len(xs); i++ {
		step := xs[i] - xs[i-1]
		if step <= 0 || math.Abs(step-width) > 1e-6*width {
			return nil, fmt.Errorf("bin %d: non-uniform spacing (%g vs %g)", i, step, width)
		}
	}

	s, err := NewSpectrum(name, len(xs), xs[0]-width/2, xs[len(xs)-1]+width/2)
	if err != nil {
		return nil, err
	}
	copy(s.counts, ys)
	return s, nil
}
