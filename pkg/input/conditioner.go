package input

import "math"

// ApplyDeadband zeroes values inside the deadband and rescales the rest so the
// output ramps from 0 at the deadband edge to ±1 at full deflection.
// deadband must be in [0, 1).
//
// Example with deadband 0.1: 0.05 -> 0, 0.55 -> 0.5, 1.0 -> 1.0.
func ApplyDeadband(value, deadband float64) float64 {
	magnitude := math.Abs(value)
	if magnitude < deadband {
		return 0
	}
	rescaled := (magnitude - deadband) / (1 - deadband)
	return math.Copysign(rescaled, value)
}

// SquareInput squares the magnitude and keeps the sign.
// Small deflections get finer control, full deflection stays at ±1.
func SquareInput(value float64) float64 {
	if value == 0 {
		return 0
	}
	return math.Copysign(value*value, value)
}

// ProcessInput applies the deadband, optionally squares, then scales by maxSpeed.
// maxSpeed may already include a speed-mode multiplier.
func ProcessInput(raw, deadband, maxSpeed float64, square bool) float64 {
	processed := ApplyDeadband(raw, deadband)
	if square {
		processed = SquareInput(processed)
	}
	return processed * maxSpeed
}

// Sanitize makes a raw axis reading safe to condition: NaN becomes 0 and
// anything outside [-1, 1] saturates.
func Sanitize(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return Clamp(value, -1, 1)
}

// Clamp restricts value to [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// NormalizeAngle wraps degrees into (-180, 180].
func NormalizeAngle(degrees float64) float64 {
	angle := math.Mod(degrees, 360)
	if angle > 180 {
		angle -= 360
	} else if angle <= -180 {
		angle += 360
	}
	return angle
}
