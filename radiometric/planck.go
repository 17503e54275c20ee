// Package radiometric implements the Radiometric Mapper (C7): a pure,
// stateless conversion from a raw sensor pixel count to degrees Celsius
// using the sensor module's fixed Planck-law inversion constants.
package radiometric

import (
	"math"

	"github.com/thermview/thermcore/internal/constants"
)

// Celsius is a temperature expressed in degrees Celsius, named the way
// periph.io's unit types are: a plain float64 with a domain-specific name
// rather than a bare numeric return value.
type Celsius float64

// FromCount converts a single raw sensor pixel count to degrees Celsius
// (§4.7). The additive 25 and divisor E are calibration constants of the
// specific sensor module and are preserved exactly as specified, even
// though their derivation is not documented. No bounds are enforced on
// the result.
func FromCount(count float64) Celsius {
	l := (count - constants.PlanckO) * constants.PlanckR2 / constants.PlanckE
	if l <= 0 {
		l = constants.PlanckLogDomainFloor
	}

	tKelvin := constants.PlanckB/math.Log(constants.PlanckR1/l+constants.PlanckF) + constants.PlanckCalibrationAdditive
	return Celsius(tKelvin - constants.KelvinToCelsiusOffset)
}

// FromPlane converts an entire raw pixel plane to Celsius values in one
// pass, for batch use (e.g. populating a hover-readout lookup).
func FromPlane(raw []uint16) []Celsius {
	out := make([]Celsius, len(raw))
	for i, v := range raw {
		out[i] = FromCount(float64(v))
	}
	return out
}
