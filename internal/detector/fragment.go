// Package detector models decoded digitizer data: single-channel fragments,
// per-subsystem columnar hit containers, the channel map that turns raw
// charge into calibrated energy, and waveform shape estimation.
package detector

// Fragment is one decoded digitizer record for a single channel: the
// integrated charge, the discriminator times, and optionally the raw
// waveform samples.
type Fragment struct {
	// Address identifies the electronics channel that produced the record.
	Address uint32
	// Charge is the integrated pulse charge in ADC units.
	Charge int
	// CFD is the constant-fraction discriminator time.
	CFD float64
	// LED is the leading-edge discriminator time.
	LED float64
	// Time is the trigger-relative timestamp.
	Time float64
	// Waveform holds the raw digitizer samples, empty when the digitizer
	// ran in charge-only mode.
	Waveform []int16
}

// HasWaveform reports whether the fragment carries raw samples.
func (f *Fragment) HasWaveform() bool { return len(f.Waveform) > 0 }
