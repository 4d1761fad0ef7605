package detector

import "errors"

// ErrIndexRange is returned by HitStore getters for indices outside
// [0, Multiplicity()).
var ErrIndexRange = errors.New("hit index out of range")

// HitStore is a columnar per-subsystem hit container: one slice per field,
// kept parallel by the single Push entry point. The layout follows the
// event-builder convention of appending every field of a record at once and
// reading fields individually by hit index.
type HitStore struct {
	detectors []uint16
	segments  []uint16
	charges   []int
	energies  []float64
	timesCFD  []float64
	timesLED  []float64
	times     []float64
	waveforms [][]int16
}

// NewHitStore returns an empty container.
func NewHitStore() *HitStore { return &HitStore{} }

// Push appends one hit. The waveform slice is stored as given, not copied;
// decoders hand over ownership.
func (h *HitStore) Push(detector, segment uint16, charge int, energy, timeCFD, timeLED, t float64, wave []int16) {
	h.detectors = append(h.detectors, detector)
	h.segments = append(h.segments, segment)
	h.charges = append(h.charges, charge)
	h.energies = append(h.energies, energy)
	h.timesCFD = append(h.timesCFD, timeCFD)
	h.timesLED = append(h.timesLED, timeLED)
	h.times = append(h.times, t)
	h.waveforms = append(h.waveforms, wave)
}

// Multiplicity returns the number of stored hits.
func (h *HitStore) Multiplicity() int { return len(h.detectors) }

// Clear drops all hits, keeping the allocated capacity.
func (h *HitStore) Clear() {
	h.detectors = h.detectors[:0]
	h.segments = h.segments[:0]
	h.charges = h.charges[:0]
	h.energies = h.energies[:0]
	h.timesCFD = h.timesCFD[:0]
	h.timesLED = h.timesLED[:0]
	h.times = h.times[:0]
	h.waveforms = h.waveforms[:0]
}

func (h *HitStore) check(i int) error {
	if i < 0 || i >= len(h.detectors) {
		return ErrIndexRange
	}
	return nil
}

// Detector returns the detector number of hit i.
func (h *HitStore) Detector(i int) (uint16, error) {
	if err := h.check(i); err != nil {
		return 0, err
	}
	return h.detectors[i], nil
}

// Segment returns the segment number of hit i.
func (h *HitStore) Segment(i int) (uint16, error) {
	if err := h.check(i); err != nil {
		return 0, err
	}
	return h.segments[i], nil
}

// Charge returns the raw charge of hit i.
func (h *HitStore) Charge(i int) (int, error) {
	if err := h.check(i); err != nil {
		return 0, err
	}
	return h.charges[i], nil
}

// Energy returns the calibrated energy of hit i.
func (h *HitStore) Energy(i int) (float64, error) {
	if err := h.check(i); err != nil {
		return 0, err
	}
	return h.energies[i], nil
}

// TimeCFD returns the constant-fraction time of hit i.
func (h *HitStore) TimeCFD(i int) (float64, error) {
	if err := h.check(i); err != nil {
		return 0, err
	}
	return h.timesCFD[i], nil
}

// TimeLED returns the leading-edge time of hit i.
func (h *HitStore) TimeLED(i int) (float64, error) {
	if err := h.check(i); err != nil {
		return 0, err
	}
	return h.timesLED[i], nil
}

// Time returns the trigger-relative timestamp of hit i.
func (h *HitStore) Time(i int) (float64, error) {
	if err := h.check(i); err != nil {
		return 0, err
	}
	return h.times[i], nil
}

// Waveform returns the raw samples of hit i, nil when the hit carried none.
func (h *HitStore) Waveform(i int) ([]int16, error) {
	if err := h.check(i); err != nil {
		return nil, err
	}
	return h.waveforms[i], nil
}
