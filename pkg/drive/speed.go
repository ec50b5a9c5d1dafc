package drive

import "fmt"

// SpeedPolicy decides which speed multiplier applies when the precision and
// turbo buttons are held.
type SpeedPolicy struct {
	// MutuallyExclusive lets PrecisionPriority pick the winner when both are held.
	MutuallyExclusive bool `yaml:"mutually_exclusive" json:"mutually_exclusive"`
	// PrecisionPriority gives precision the win in exclusive mode; otherwise turbo wins.
	PrecisionPriority bool `yaml:"precision_priority" json:"precision_priority"`

	NormalMultiplier    float64 `yaml:"normal_multiplier" json:"normal_multiplier"`
	PrecisionMultiplier float64 `yaml:"precision_multiplier" json:"precision_multiplier"`
	TurboMultiplier     float64 `yaml:"turbo_multiplier" json:"turbo_multiplier"`
}

// DefaultSpeedPolicy returns exclusive modes with precision priority,
// precision at 30% and both normal and turbo at full speed.
func DefaultSpeedPolicy() SpeedPolicy {
	return SpeedPolicy{
		MutuallyExclusive:   true,
		PrecisionPriority:   true,
		NormalMultiplier:    1.0,
		PrecisionMultiplier: 0.3,
		TurboMultiplier:     1.0,
	}
}

// Validate checks that every multiplier is positive.
func (p SpeedPolicy) Validate() error {
	if p.NormalMultiplier <= 0 {
		return fmt.Errorf("%w: normal multiplier %v must be > 0", ErrInvalidPolicy, p.NormalMultiplier)
	}
	if p.PrecisionMultiplier <= 0 {
		return fmt.Errorf("%w: precision multiplier %v must be > 0", ErrInvalidPolicy, p.PrecisionMultiplier)
	}
	if p.TurboMultiplier <= 0 {
		return fmt.Errorf("%w: turbo multiplier %v must be > 0", ErrInvalidPolicy, p.TurboMultiplier)
	}
	return nil
}

// ResolveMode picks the speed mode for the held buttons.
func (p SpeedPolicy) ResolveMode(precisionHeld, turboHeld bool) SpeedMode {
	if p.MutuallyExclusive && !p.PrecisionPriority {
		if turboHeld {
			return Turbo
		}
		if precisionHeld {
			return Precision
		}
		return Normal
	}

	// Exclusive with precision priority, and the non-exclusive case, where
	// precision always overrides turbo for safety.
	if precisionHeld {
		return Precision
	}
	if turboHeld {
		return Turbo
	}
	return Normal
}

// Multiplier returns the multiplier configured for mode.
func (p SpeedPolicy) Multiplier(mode SpeedMode) float64 {
	switch mode {
	case Precision:
		return p.PrecisionMultiplier
	case Turbo:
		return p.TurboMultiplier
	default:
		return p.NormalMultiplier
	}
}

// Resolve returns the speed multiplier for the held buttons.
func (p SpeedPolicy) Resolve(precisionHeld, turboHeld bool) float64 {
	return p.Multiplier(p.ResolveMode(precisionHeld, turboHeld))
}
