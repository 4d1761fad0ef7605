// Package units provides shared constants and validation for energy units
package units

import "math"

// Unit constants
const (
	EV      = "ev"
	KEV     = "kev"
	MEV     = "mev"
	CHANNEL = "channel"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{EV, KEV, MEV, CHANNEL}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "ev, kev, mev, channel"
}

// ConvertEnergy converts an energy from keV to the target units.
// Stores and fit reports keep energies in keV.
func ConvertEnergy(energyKeV float64, targetUnits string) float64 {
	switch targetUnits {
	case EV:
		return energyKeV * 1000.0
	case MEV:
		return energyKeV / 1000.0
	case KEV:
		return energyKeV
	default:
		return energyKeV // default to keV if unknown unit
	}
}

// ChannelToEnergy applies a quadratic energy calibration to an ADC channel
// number and returns keV.
func ChannelToEnergy(channel, offset, gain, quad float64) float64 {
	return offset + gain*channel + quad*channel*channel
}

// EnergyToChannel inverts a quadratic energy calibration, picking the
// physical root. Degenerate calibrations (zero gain and quad, or no real
// root) return 0.
func EnergyToChannel(energyKeV, offset, gain, quad float64) float64 {
	if quad == 0 {
		if gain == 0 {
			return 0
		}
		return (energyKeV - offset) / gain
	}
	disc := gain*gain - 4*quad*(offset-energyKeV)
	if disc < 0 {
		return 0
	}
	return (-gain + math.Sqrt(disc)) / (2 * quad)
}
