package detector

import (
	"errors"
	"testing"
)

func TestHitStoreRoundTrip(t *testing.T) {
	h := NewHitStore()
	if h.Multiplicity() != 0 {
		t.Fatalf("fresh store multiplicity = %d, want 0", h.Multiplicity())
	}

	h.Push(1, 14, 1200, 661.7, 100.5, 101.0, 99.8, []int16{1, 2, 3})
	h.Push(2, 3, 800, 121.8, 200.5, 201.0, 199.8, nil)

	if h.Multiplicity() != 2 {
		t.Fatalf("multiplicity = %d, want 2", h.Multiplicity())
	}

	det, err := h.Detector(0)
	if err != nil || det != 1 {
		t.Errorf("Detector(0) = %d, %v; want 1, nil", det, err)
	}
	seg, err := h.Segment(0)
	if err != nil || seg != 14 {
		t.Errorf("Segment(0) = %d, %v; want 14, nil", seg, err)
	}
	q, err := h.Charge(1)
	if err != nil || q != 800 {
		t.Errorf("Charge(1) = %d, %v; want 800, nil", q, err)
	}
	e, err := h.Energy(0)
	if err != nil || e != 661.7 {
		t.Errorf("Energy(0) = %g, %v; want 661.7, nil", e, err)
	}
	cfd, err := h.TimeCFD(1)
	if err != nil || cfd != 200.5 {
		t.Errorf("TimeCFD(1) = %g, %v; want 200.5, nil", cfd, err)
	}
	led, err := h.TimeLED(0)
	if err != nil || led != 101.0 {
		t.Errorf("TimeLED(0) = %g, %v; want 101, nil", led, err)
	}
	ts, err := h.Time(1)
	if err != nil || ts != 199.8 {
		t.Errorf("Time(1) = %g, %v; want 199.8, nil", ts, err)
	}
	w, err := h.Waveform(0)
	if err != nil || len(w) != 3 || w[2] != 3 {
		t.Errorf("Waveform(0) = %v, %v; want [1 2 3], nil", w, err)
	}
	w, err = h.Waveform(1)
	if err != nil || w != nil {
		t.Errorf("Waveform(1) = %v, %v; want nil, nil", w, err)
	}
}

func TestHitStoreIndexErrors(t *testing.T) {
	h := NewHitStore()
	h.Push(1, 0, 10, 1, 0, 0, 0, nil)

	for _, i := range []int{-1, 1, 42} {
		if _, err := h.Energy(i); !errors.Is(err, ErrIndexRange) {
			t.Errorf("Energy(%d) error = %v, want ErrIndexRange", i, err)
		}
		if _, err := h.Detector(i); !errors.Is(err, ErrIndexRange) {
			t.Errorf("Detector(%d) error = %v, want ErrIndexRange", i, err)
		}
		if _, err := h.Waveform(i); !errors.Is(err, ErrIndexRange) {
			t.Errorf("Waveform(%d) error = %v, want ErrIndexRange", i, err)
		}
	}
}

func TestHitStoreClear(t *testing.T) {
	h := NewHitStore()
	h.Push(1, 0, 10, 1, 0, 0, 0, nil)
	h.Push(1, 1, 20, 2, 0, 0, 0, nil)

	h.Clear()
	if h.Multiplicity() != 0 {
		t.Errorf("multiplicity after Clear = %d, want 0", h.Multiplicity())
	}
	if _, err := h.Energy(0); !errors.Is(err, ErrIndexRange) {
		t.Errorf("Energy(0) after Clear = %v, want ErrIndexRange", err)
	}

	// The store is reusable after Clear.
	h.Push(3, 7, 5, 0.5, 0, 0, 0, nil)
	if h.Multiplicity() != 1 {
		t.Errorf("multiplicity after refill = %d, want 1", h.Multiplicity())
	}
	if det, _ := h.Detector(0); det != 3 {
		t.Errorf("Detector(0) after refill = %d, want 3", det)
	}
}
