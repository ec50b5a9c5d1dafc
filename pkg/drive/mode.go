// Package drive holds the mecanum drive model: drive modes, speed policy and
// the kinematic mix from chassis velocity to wheel power.
package drive

// Mode selects the frame drive commands are interpreted in.
type Mode int

const (
	// ModeRobotCentric interprets forward as the chassis' own forward axis.
	ModeRobotCentric Mode = iota
	// ModeFieldCentric interprets forward as a fixed field direction and needs a heading.
	ModeFieldCentric
)

// ModeFromFieldCentric maps a toggle value onto a Mode.
func ModeFromFieldCentric(fieldCentric bool) Mode {
	if fieldCentric {
		return ModeFieldCentric
	}
	return ModeRobotCentric
}

func (m Mode) String() string {
	switch m {
	case ModeFieldCentric:
		return "field_centric"
	default:
		return "robot_centric"
	}
}

// MarshalText lets modes appear by name in JSON telemetry.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// SpeedMode is the speed profile active for one tick. It is never stored.
type SpeedMode int

const (
	Normal SpeedMode = iota
	Precision
	Turbo
)

func (s SpeedMode) String() string {
	switch s {
	case Precision:
		return "precision"
	case Turbo:
		return "turbo"
	default:
		return "normal"
	}
}

// MarshalText lets speed modes appear by name in JSON telemetry.
func (s SpeedMode) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
