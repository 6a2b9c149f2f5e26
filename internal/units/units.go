// Package units converts vehicle speeds, which are always reported in mm/s,
// into display units.
package units

import "strings"

// Unit constants
const (
	MMPS = "mmps"
	MPS  = "mps"
	KMPH = "kmph"
	MPH  = "mph"
	// ScaleKMPH is the speed a full size car would need to look the same
	// at the vehicles' 1:64 scale.
	ScaleKMPH = "scale_kmph"
)

// ScaleFactor is the model scale of the vehicles.
const ScaleFactor = 64

// ValidUnits contains all valid unit values
var ValidUnits = []string{MMPS, MPS, KMPH, MPH, ScaleKMPH}

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
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed from millimetres per second to the target
// units. Unknown units return the input unchanged.
func ConvertSpeed(speedMMPS float64, targetUnits string) float64 {
	mps := speedMMPS / 1000
	switch targetUnits {
	case MPS:
		return mps
	case KMPH:
		return mps * 3.6
	case MPH:
		return mps * 2.2369362920544
	case ScaleKMPH:
		return mps * 3.6 * ScaleFactor
	default:
		return speedMMPS
	}
}

// Label returns the short suffix printed after a converted speed.
func Label(unit string) string {
	switch unit {
	case MPS:
		return "m/s"
	case KMPH:
		return "km/h"
	case MPH:
		return "mph"
	case ScaleKMPH:
		return "km/h (scale)"
	default:
		return "mm/s"
	}
}
