package spectro

import (
	"math"
	"sort"
)

// PeakCandidate is one local maximum surviving the prominence and spacing
// filters, ready to hand to a shape's Seed.
type PeakCandidate struct {
	Bin        int
	Energy     float64
	Height     float64
	Prominence float64
	// Width is the candidate's width at half prominence, in coordinate units.
	Width float64
}

// SearchOptions tunes the candidate search.
type SearchOptions struct {
	// MinProminence drops maxima that rise less than this above the higher
	// of their flanking valleys. Zero keeps everything.
	MinProminence float64
	// MinDistanceBins drops candidates closer than this many bins to a more
	// prominent one.
	MinDistanceBins int
	// MaxPeaks caps the number of returned candidates, 0 meaning no cap.
	MaxPeaks int
	// Window is the half-width in bins a maximum must dominate. Defaults
	// to 1 (strict neighbors).
	Window int
}

// SearchPeaks scans the spectrum for local maxima, scores each by
// prominence, enforces minimum spacing, and returns the survivors ordered by
// descending prominence.
func SearchPeaks(s *Spectrum, opts SearchOptions) []PeakCandidate {
	if s == nil || s.NumBins() < 3 {
		return nil
	}
	window := opts.Window
	if window < 1 {
		window = 1
	}

	var found []PeakCandidate
	for i := 1; i < s.NumBins()-1; i++ {
		if !isLocalMax(s, i, window) {
			continue
		}
		prom := prominenceAt(s, i)
		if prom < opts.MinProminence {
			continue
		}
		found = append(found, PeakCandidate{
			Bin:        i,
			Energy:     s.BinCenter(i),
			Height:     s.At(i),
			Prominence: prom,
			Width:      widthAt(s, i, prom),
		})
	}

	sort.Slice(found, func(a, b int) bool {
		if found[a].Prominence != found[b].Prominence {
			return found[a].Prominence > found[b].Prominence
		}
		return found[a].Bin < found[b].Bin
	})

	if opts.MinDistanceBins > 1 {
		found = filterBySpacing(found, opts.MinDistanceBins)
	}
	if opts.MaxPeaks > 0 && len(found) > opts.MaxPeaks {
		found = found[:opts.MaxPeaks]
	}
	return found
}

// isLocalMax reports whether bin i strictly dominates every bin within
// window on both sides.
func isLocalMax(s *Spectrum, i, window int) bool {
	v := s.At(i)
	for j := i - window; j < i; j++ {
		if j >= 0 && s.At(j) >= v {
			return false
		}
	}
	for j := i + 1; j <= i+window; j++ {
		if j < s.NumBins() && s.At(j) >= v {
			return false
		}
	}
	return true
}

// prominenceAt measures how far bin i rises above the higher of the two
// valleys separating it from taller terrain.
func prominenceAt(s *Spectrum, i int) float64 {
	v := s.At(i)

	leftMin := v
	for j := i - 1; j >= 0; j-- {
		if c := s.At(j); c < leftMin {
			leftMin = c
		}
		if s.At(j) > v {
			break
		}
	}

	rightMin := v
	for j := i + 1; j < s.NumBins(); j++ {
		if c := s.At(j); c < rightMin {
			rightMin = c
		}
		if s.At(j) > v {
			break
		}
	}

	return v - math.Max(leftMin, rightMin)
}

// widthAt measures the width at half prominence around bin i, in coordinate
// units.
func widthAt(s *Spectrum, i int, prom float64) float64 {
	half := s.At(i) - prom/2

	left := i
	for j := i - 1; j >= 0; j-- {
		if s.At(j) < half {
			left = j
			break
		}
	}
	right := i
	for j := i + 1; j < s.NumBins(); j++ {
		if s.At(j) < half {
			right = j
			break
		}
	}
	return float64(right-left) * s.BinWidth()
}

// filterBySpacing keeps the most prominent candidate of any cluster closer
// than minDist bins. Input must already be sorted by descending prominence.
func filterBySpacing(cands []PeakCandidate, minDist int) []PeakCandidate {
	kept := cands[:0:0]
	for _, c := range cands {
		tooClose := false
		for _, k := range kept {
			if abs(c.Bin-k.Bin) < minDist {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, c)
		}
	}
	return kept
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
