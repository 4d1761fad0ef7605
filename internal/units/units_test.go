package units

import (
	"math"
	"testing"
)

func TestConvertEnergy(t *testing.T) {
	tests := []struct {
		name      string
		energyKeV float64
		units     string
		expected  float64
	}{
		{"1332.5 keV to mev", 1332.5, MEV, 1.3325},
		{"1332.5 keV to ev", 1332.5, EV, 1332500.0},
		{"1332.5 keV to kev", 1332.5, KEV, 1332.5},
		{"unknown units default to kev", 661.7, "unknown", 661.7},
		{"0 keV to mev", 0.0, MEV, 0.0},
		{"x-ray 59.5 keV to ev", 59.5, EV, 59500.0}, // Am-241
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertEnergy(tt.energyKeV, tt.units)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ConvertEnergy(%f, %s) = %f, want %f", tt.energyKeV, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		unit     string
		expected bool
	}{
		{EV, true},
		{KEV, true},
		{MEV, true},
		{CHANNEL, true},
		{"", false},
		{"keV", false}, // case-sensitive
		{"joule", false},
	}

	for _, tt := range tests {
		if got := IsValid(tt.unit); got != tt.expected {
			t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.expected)
		}
	}
}

func TestGetValidUnitsString(t *testing.T) {
	if got := GetValidUnitsString(); got != "ev, kev, mev, channel" {
		t.Errorf("GetValidUnitsString() = %q", got)
	}
}

func TestChannelToEnergy(t *testing.T) {
	tests := []struct {
		name                string
		channel             float64
		offset, gain, quad  float64
		expected            float64
	}{
		{"quadratic", 100, 1.0, 0.5, 1e-4, 52.0},
		{"linear", 200, 2.0, 0.75, 0, 152.0},
		{"offset only", 123, 5.0, 0, 0, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChannelToEnergy(tt.channel, tt.offset, tt.gain, tt.quad)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("ChannelToEnergy(%v) = %v, want %v", tt.channel, got, tt.expected)
			}
		})
	}
}

func TestEnergyToChannel(t *testing.T) {
	// Quadratic calibration inverts back to the original channel.
	if got := EnergyToChannel(52.0, 1.0, 0.5, 1e-4); math.Abs(got-100.0) > 1e-6 {
		t.Errorf("quadratic inverse = %v, want 100", got)
	}
	// Linear calibration is exact.
	if got := EnergyToChannel(152.0, 2.0, 0.75, 0); got != 200.0 {
		t.Errorf("linear inverse = %v, want 200", got)
	}
	// Degenerate calibrations fall back to channel 0.
	if got := EnergyToChannel(100.0, 5.0, 0, 0); got != 0 {
		t.Errorf("degenerate inverse = %v, want 0", got)
	}
	if got := EnergyToChannel(1.0, 0, 0, -1); got != 0 {
		t.Errorf("no-real-root inverse = %v, want 0", got)
	}
}

func TestCalibrationRoundTrip(t *testing.T) {
	const offset, gain, quad = 0.35, 1.2, 2.5e-5
	for _, ch := range []float64{0, 1, 64, 512, 4095} {
		e := ChannelToEnergy(ch, offset, gain, quad)
		back := EnergyToChannel(e, offset, gain, quad)
		if math.Abs(back-ch) > 1e-6 {
			t.Errorf("round trip channel %v -> %v keV -> %v", ch, e, back)
		}
	}
}
