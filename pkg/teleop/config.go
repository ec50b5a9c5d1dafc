package teleop

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/teslashibe/go-mecanum/pkg/actuator"
	"github.com/teslashibe/go-mecanum/pkg/drive"
	"github.com/teslashibe/go-mecanum/pkg/input"
)

// Bindings maps drive functions onto gamepad buttons.
type Bindings struct {
	Precision          input.Button `yaml:"precision" json:"precision"`
	Turbo              input.Button `yaml:"turbo" json:"turbo"`
	ToggleFieldCentric input.Button `yaml:"toggle_field_centric" json:"toggle_field_centric"`
	ResetHeading       input.Button `yaml:"reset_heading" json:"reset_heading"`
	ResetPosition      input.Button `yaml:"reset_position" json:"reset_position"`
}

// Axes flips raw stick axes before conditioning. Most gamepads report
// pushing the left stick up as negative Y.
type Axes struct {
	InvertStrafe  bool `yaml:"invert_strafe" json:"invert_strafe"`
	InvertForward bool `yaml:"invert_forward" json:"invert_forward"`
	InvertTurn    bool `yaml:"invert_turn" json:"invert_turn"`
}

// Config holds every tunable parameter of the drive pipeline.
type Config struct {
	// Conditioning
	Deadband        float64 `yaml:"deadband" json:"deadband"`
	MaxLinearSpeed  float64 `yaml:"max_linear_speed" json:"max_linear_speed"`
	MaxAngularSpeed float64 `yaml:"max_angular_speed" json:"max_angular_speed"`
	SquareInputs    bool    `yaml:"square_inputs" json:"square_inputs"`

	// Modes
	Speed               drive.SpeedPolicy `yaml:"speed" json:"speed"`
	DefaultFieldCentric bool              `yaml:"default_field_centric" json:"default_field_centric"`

	Bindings Bindings `yaml:"bindings" json:"bindings"`
	Axes     Axes     `yaml:"axes" json:"axes"`

	// Motors is consumed by the actuator sink, not the pipeline.
	Motors actuator.Inversion `yaml:"motors" json:"motors"`

	// Timing
	LoopHz         float64       `yaml:"loop_hz" json:"loop_hz"`
	StaleAfter     time.Duration `yaml:"stale_after" json:"stale_after"`         // Gamepad frames older than this read as neutral
	HeartbeatTicks uint64        `yaml:"heartbeat_ticks" json:"heartbeat_ticks"` // Runner heartbeat log period
}

// DefaultConfig returns the stock drive configuration.
func DefaultConfig() Config {
	return Config{
		Deadband:        0.1,
		MaxLinearSpeed:  1.0,
		MaxAngularSpeed: 1.0,
		SquareInputs:    false,

		Speed:               drive.DefaultSpeedPolicy(),
		DefaultFieldCentric: false,

		Bindings: Bindings{
			Precision:          input.ButtonLeftBumper,
			Turbo:              input.ButtonRightBumper,
			ToggleFieldCentric: input.ButtonStart,
			ResetHeading:       input.ButtonBack,
			ResetPosition:      input.ButtonDpadDown,
		},
		Axes: Axes{InvertForward: true},

		Motors: actuator.DefaultInversion(),

		LoopHz:         50,
		StaleAfter:     500 * time.Millisecond,
		HeartbeatTicks: 250, // ~5 seconds at 50Hz
	}
}

// PrecisionConfig returns a configuration for slow, careful driving in
// tight spaces.
func PrecisionConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxLinearSpeed = 0.6
	cfg.MaxAngularSpeed = 0.5
	cfg.Speed.PrecisionMultiplier = 0.2
	cfg.SquareInputs = true
	return cfg
}

// SquaredConfig returns the default configuration with squared stick response.
func SquaredConfig() Config {
	cfg := DefaultConfig()
	cfg.SquareInputs = true
	return cfg
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Deadband <= 0 || c.Deadband >= 1 {
		return fmt.Errorf("%w: deadband %v must be in (0, 1)", ErrInvalidConfig, c.Deadband)
	}
	if c.MaxLinearSpeed <= 0 {
		return fmt.Errorf("%w: max linear speed %v must be > 0", ErrInvalidConfig, c.MaxLinearSpeed)
	}
	if c.MaxAngularSpeed <= 0 {
		return fmt.Errorf("%w: max angular speed %v must be > 0", ErrInvalidConfig, c.MaxAngularSpeed)
	}
	if err := c.Speed.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.LoopHz <= 0 {
		return fmt.Errorf("%w: loop rate %v must be > 0", ErrInvalidConfig, c.LoopHz)
	}
	if c.StaleAfter < 0 {
		return fmt.Errorf("%w: stale_after %v must not be negative", ErrInvalidConfig, c.StaleAfter)
	}
	return nil
}

// Period returns the tick interval for LoopHz.
func (c Config) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.LoopHz)
}

// LoadFile reads a YAML config over the defaults. Keys absent from the file
// keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("teleop: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("teleop: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TELEOP_* environment variables.
func (c *Config) ApplyEnv() error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"TELEOP_DEADBAND", &c.Deadband},
		{"TELEOP_MAX_LINEAR_SPEED", &c.MaxLinearSpeed},
		{"TELEOP_MAX_ANGULAR_SPEED", &c.MaxAngularSpeed},
		{"TELEOP_PRECISION_MULTIPLIER", &c.Speed.PrecisionMultiplier},
		{"TELEOP_TURBO_MULTIPLIER", &c.Speed.TurboMultiplier},
		{"TELEOP_LOOP_HZ", &c.LoopHz},
	}
	for _, f := range floats {
		v := os.Getenv(f.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("teleop: %s: %w", f.key, err)
		}
		*f.dst = parsed
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"TELEOP_SQUARE_INPUTS", &c.SquareInputs},
		{"TELEOP_FIELD_CENTRIC", &c.DefaultFieldCentric},
		{"TELEOP_MUTUALLY_EXCLUSIVE", &c.Speed.MutuallyExclusive},
		{"TELEOP_PRECISION_PRIORITY", &c.Speed.PrecisionPriority},
	}
	for _, b := range bools {
		v := os.Getenv(b.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("teleop: %s: %w", b.key, err)
		}
		*b.dst = parsed
	}

	if v := os.Getenv("TELEOP_STALE_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("teleop: TELEOP_STALE_AFTER: %w", err)
		}
		c.StaleAfter = d
	}
	return nil
}
