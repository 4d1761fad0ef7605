package detector

import (
	"fmt"
	"math"
	"sort"
)

// Segment geometry of the segmented array: detectors are divided into rings
// of 12 sectors each, with segments numbered ring-major.
const sectorsPerRing = 12

// Ring returns the ring index of a segment.
func Ring(seg int) int { return seg / sectorsPerRing }

// Sector returns the sector index of a segment within its ring.
func Sector(seg int) int { return seg % sectorsPerRing }

// Preamp returns the preamplifier group a segment is cabled to. Groups
// interleave across sector triplets, alternating with ring parity.
func Preamp(seg int) int {
	return ((Sector(seg) / 3) * 2) + (((Sector(seg) % 3) + Ring(seg)) % 2)
}

// defaultAddbackWindow is the time gate, in the hit timestamp's units,
// within which neighboring-segment hits are summed.
const defaultAddbackWindow = 200.0

// AddbackHit is one summed cluster of neighboring-segment hits. Detector,
// segment and time come from the most energetic member.
type AddbackHit struct {
	Detector uint16
	Segment  uint16
	Energy   float64
	Time     float64
	// Size is the number of hits summed into this cluster.
	Size int
}

// Subsystem wraps a columnar hit container with the channel map that
// calibrates incoming fragments and with addback: the reconstruction of
// gamma rays that scattered between neighboring segments by summing their
// energies. Addback is computed lazily and invalidated by Clear.
type Subsystem struct {
	name string
	cm   *ChannelMap
	hits *HitStore

	addbackWindow float64

	// addback caches the clusters; addbackSet marks the cache valid.
	addback    []AddbackHit
	addbackSet bool
}

// NewSubsystem wires a named subsystem to its channel map.
func NewSubsystem(name string, cm *ChannelMap) *Subsystem {
	return &Subsystem{
		name:          name,
		cm:            cm,
		hits:          NewHitStore(),
		addbackWindow: defaultAddbackWindow,
	}
}

// Name returns the subsystem identifier.
func (s *Subsystem) Name() string { return s.name }

// Hits exposes the underlying columnar container.
func (s *Subsystem) Hits() *HitStore { return s.hits }

// SetAddbackWindow overrides the addback time gate and invalidates any
// cached clusters.
func (s *Subsystem) SetAddbackWindow(w float64) {
	s.addbackWindow = w
	s.ResetAddback()
}

// AddFragment resolves the fragment's address through the channel map,
// calibrates its charge and appends the hit. Fragments from unmapped
// addresses are an error; the event builder decides whether to drop or halt.
func (s *Subsystem) AddFragment(f *Fragment) error {
	ch, ok := s.cm.Lookup(f.Address)
	if !ok {
		return fmt.Errorf("subsystem %s: address 0x%04x not in channel map", s.name, f.Address)
	}
	if ch.Subsystem != "" && ch.Subsystem != s.name {
		return fmt.Errorf("subsystem %s: address 0x%04x belongs to %s", s.name, f.Address, ch.Subsystem)
	}
	energy := ch.Calibrate(float64(f.Charge))
	s.hits.Push(uint16(ch.Detector), uint16(ch.Segment), f.Charge, energy, f.CFD, f.LED, f.Time, f.Waveform)
	s.addbackSet = false
	return nil
}

// Multiplicity returns the raw hit count.
func (s *Subsystem) Multiplicity() int { return s.hits.Multiplicity() }

// Clear drops all hits and the cached addback clusters.
func (s *Subsystem) Clear() {
	s.hits.Clear()
	s.ResetAddback()
}

// ResetAddback drops the cached clusters so the next addback query rebuilds
// them.
func (s *Subsystem) ResetAddback() {
	s.addback = nil
	s.addbackSet = false
}

// AddbackMultiplicity returns the number of addback clusters, building them
// on first call since the last mutation.
func (s *Subsystem) AddbackMultiplicity() int {
	s.buildAddback()
	return len(s.addback)
}

// AddbackHit returns cluster i.
func (s *Subsystem) AddbackHit(i int) (AddbackHit, error) {
	s.buildAddback()
	if i < 0 || i >= len(s.addback) {
		return AddbackHit{}, ErrIndexRange
	}
	return s.addback[i], nil
}

// buildAddback greedily clusters hits around descending-energy seeds: each
// remaining hit joins the first cluster whose seed passes the addback
// criterion.
func (s *Subsystem) buildAddback() {
	if s.addbackSet {
		return
	}
	s.addback = s.addback[:0]
	n := s.hits.Multiplicity()

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return s.hits.energies[order[a]] > s.hits.energies[order[b]]
	})

	assigned := make([]bool, n)
	for _, seed := range order {
		if assigned[seed] {
			continue
		}
		assigned[seed] = true
		cluster := AddbackHit{
			Detector: s.hits.detectors[seed],
			Segment:  s.hits.segments[seed],
			Energy:   s.hits.energies[seed],
			Time:     s.hits.times[seed],
			Size:     1,
		}
		for _, j := range order {
			if assigned[j] {
				continue
			}
			if s.addbackCriterion(seed, j) {
				assigned[j] = true
				cluster.Energy += s.hits.energies[j]
				cluster.Size++
			}
		}
		s.addback = append(s.addback, cluster)
	}
	s.addbackSet = true
}

// addbackCriterion reports whether hits a and b are summable: same detector,
// neighboring segments (rings and sectors differing by at most one, sectors
// wrapping around the ring), and times within the addback window.
func (s *Subsystem) addbackCriterion(a, b int) bool {
	if s.hits.detectors[a] != s.hits.detectors[b] {
		return false
	}
	if math.Abs(s.hits.times[a]-s.hits.times[b]) > s.addbackWindow {
		return false
	}
	segA, segB := int(s.hits.segments[a]), int(s.hits.segments[b])
	if abs(Ring(segA)-Ring(segB)) > 1 {
		return false
	}
	ds := abs(Sector(segA) - Sector(segB))
	if ds > sectorsPerRing/2 {
		ds = sectorsPerRing - ds
	}
	return ds <= 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
