package teleop

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-mecanum/pkg/actuator"
	"github.com/teslashibe/go-mecanum/pkg/drive"
	"github.com/teslashibe/go-mecanum/pkg/heading"
	"github.com/teslashibe/go-mecanum/pkg/input"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func wheelsEqual(a, b drive.WheelCommand) bool {
	x, y := a.Array(), b.Array()
	for i := range x {
		if !floatEquals(x[i], y[i]) {
			return false
		}
	}
	return true
}

// testConfig is the default config with raw stick axes passed straight through.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Axes = Axes{}
	return cfg
}

func pad(buttons ...input.Button) input.Gamepad {
	g := input.Gamepad{Buttons: map[input.Button]bool{}}
	for _, b := range buttons {
		g.Buttons[b] = true
	}
	return g
}

// scriptedInput replays samples; a nil-error entry with err set fails that read.
type scriptedInput struct {
	mu    sync.Mutex
	pads  []input.Gamepad
	errs  []error
	calls int
}

func (s *scriptedInput) Read() (input.Gamepad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return input.Gamepad{}, s.errs[i]
	}
	if i >= len(s.pads) {
		return input.Gamepad{}, nil
	}
	return s.pads[i], nil
}

// mockHeading returns scripted headings and counts resets.
type mockHeading struct {
	mu             sync.Mutex
	values         []float64
	errs           []error
	calls          int
	headingResets  int
	positionResets int
}

func (m *mockHeading) Heading() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return 0, m.errs[i]
	}
	if len(m.values) == 0 {
		return 0, nil
	}
	if i >= len(m.values) {
		return m.values[len(m.values)-1], nil
	}
	return m.values[i], nil
}

func (m *mockHeading) ResetHeading() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headingResets++
	return nil
}

func (m *mockHeading) ResetPosition() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positionResets++
	return nil
}

func (m *mockHeading) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"precision preset", func(c *Config) { *c = PrecisionConfig() }, false},
		{"squared preset", func(c *Config) { *c = SquaredConfig() }, false},
		{"zero deadband", func(c *Config) { c.Deadband = 0 }, true},
		{"negative deadband", func(c *Config) { c.Deadband = -0.1 }, true},
		{"deadband of one", func(c *Config) { c.Deadband = 1 }, true},
		{"deadband above one", func(c *Config) { c.Deadband = 1.5 }, true},
		{"zero linear speed", func(c *Config) { c.MaxLinearSpeed = 0 }, true},
		{"negative angular speed", func(c *Config) { c.MaxAngularSpeed = -1 }, true},
		{"zero precision multiplier", func(c *Config) { c.Speed.PrecisionMultiplier = 0 }, true},
		{"zero loop rate", func(c *Config) { c.LoopHz = 0 }, true},
		{"negative stale timeout", func(c *Config) { c.StaleAfter = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_Period(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Period() != 20*time.Millisecond {
		t.Errorf("Period = %v, want 20ms", cfg.Period())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive.yaml")
	data := []byte(`deadband: 0.2
square_inputs: true
speed:
  precision_multiplier: 0.5
bindings:
  turbo: a
stale_after: 250ms
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Deadband != 0.2 || !cfg.SquareInputs {
		t.Errorf("top-level fields not loaded: %+v", cfg)
	}
	if cfg.Speed.PrecisionMultiplier != 0.5 {
		t.Errorf("PrecisionMultiplier = %v, want 0.5", cfg.Speed.PrecisionMultiplier)
	}
	if cfg.Bindings.Turbo != input.ButtonA {
		t.Errorf("Turbo binding = %q, want a", cfg.Bindings.Turbo)
	}
	if cfg.StaleAfter != 250*time.Millisecond {
		t.Errorf("StaleAfter = %v, want 250ms", cfg.StaleAfter)
	}
	if cfg.MaxLinearSpeed != 1.0 || cfg.LoopHz != 50 {
		t.Error("fields absent from the file should keep defaults")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("deadband: [1, 2"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TELEOP_DEADBAND", "0.15")
	t.Setenv("TELEOP_FIELD_CENTRIC", "true")
	t.Setenv("TELEOP_STALE_AFTER", "1s")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.Deadband != 0.15 {
		t.Errorf("Deadband = %v", cfg.Deadband)
	}
	if !cfg.DefaultFieldCentric {
		t.Error("DefaultFieldCentric not applied")
	}
	if cfg.StaleAfter != time.Second {
		t.Errorf("StaleAfter = %v", cfg.StaleAfter)
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv("TELEOP_LOOP_HZ", "fast")
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("expected parse error")
	}
}

func TestStep_ConditionedStrafe(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		raw  float64
		want float64
	}{
		{0.55, 0.5},
		{0.05, 0},
		{-0.55, -0.5},
		{1, 1},
	}
	for _, tt := range tests {
		g := pad()
		g.LeftX = tt.raw
		out, _ := Step(cfg, NewState(cfg), g, 0)
		if !floatEquals(out.Conditioned.X, tt.want) {
			t.Errorf("raw strafe %v: conditioned %v, want %v", tt.raw, out.Conditioned.X, tt.want)
		}
	}
}

func TestStep_ForwardAxisInverted(t *testing.T) {
	cfg := DefaultConfig()
	g := pad()
	g.LeftY = -1 // stick pushed up

	out, _ := Step(cfg, NewState(cfg), g, 0)
	if out.Conditioned.Y != 1 {
		t.Errorf("forward = %v, want 1", out.Conditioned.Y)
	}
	w := out.Wheels
	if w.FrontLeft != 1 || w.FrontRight != 1 || w.BackLeft != 1 || w.BackRight != 1 {
		t.Errorf("full forward wheels = %+v", w)
	}
}

func TestStep_SanitizesAxes(t *testing.T) {
	cfg := testConfig()
	g := pad()
	g.LeftX = math.NaN()
	g.LeftY = 3
	g.RightX = -7

	out, _ := Step(cfg, NewState(cfg), g, 0)
	if out.Raw.X != 0 || out.Raw.Y != 1 || out.Raw.Z != -1 {
		t.Errorf("Raw = %+v, want (0, 1, -1)", out.Raw)
	}
	for _, p := range out.Wheels.Array() {
		if math.IsNaN(p) || math.Abs(p) > 1 {
			t.Fatalf("wheel power out of range: %+v", out.Wheels)
		}
	}
}

func TestStep_SpeedMultiplier(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name    string
		buttons []input.Button
		speed   drive.SpeedMode
		want    float64
	}{
		{"normal", nil, drive.Normal, 1.0},
		{"precision", []input.Button{input.ButtonLeftBumper}, drive.Precision, 0.3},
		{"turbo", []input.Button{input.ButtonRightBumper}, drive.Turbo, 1.0},
		{"both held", []input.Button{input.ButtonLeftBumper, input.ButtonRightBumper}, drive.Precision, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := pad(tt.buttons...)
			g.LeftX = 1
			out, _ := Step(cfg, NewState(cfg), g, 0)
			if out.SpeedMode != tt.speed {
				t.Errorf("SpeedMode = %v, want %v", out.SpeedMode, tt.speed)
			}
			if !floatEquals(out.Conditioned.X, tt.want) {
				t.Errorf("strafe = %v, want %v", out.Conditioned.X, tt.want)
			}
		})
	}
}

func TestStep_ToggleResolvesBeforeKinematics(t *testing.T) {
	cfg := testConfig()
	g := pad(input.ButtonStart)
	g.LeftY = 1

	out, state := Step(cfg, NewState(cfg), g, 90)
	if !out.ModeChanged || out.Mode != drive.ModeFieldCentric {
		t.Fatalf("press should switch to field-centric on the same tick: %+v", out)
	}
	if !state.FieldCentric.Get() {
		t.Error("returned state should be field-centric")
	}

	// Field forward at heading 90 is a right strafe.
	want := drive.RobotCentric(drive.Velocity(1, 0, 0))
	if !wheelsEqual(out.Wheels, want) {
		t.Errorf("wheels = %+v, want %+v", out.Wheels, want)
	}
}

func TestStep_HoldTogglesOnce(t *testing.T) {
	cfg := testConfig()
	state := NewState(cfg)

	changes := 0
	for i := 0; i < 5; i++ {
		var out Output
		out, state = Step(cfg, state, pad(input.ButtonStart), 0)
		if out.ModeChanged {
			changes++
			if i != 0 {
				t.Errorf("change on tick %d, want only tick 0", i)
			}
		}
	}
	if changes != 1 || state.Mode() != drive.ModeFieldCentric {
		t.Fatalf("changes = %d, mode = %v", changes, state.Mode())
	}

	_, state = Step(cfg, state, pad(), 0)
	out, state := Step(cfg, state, pad(input.ButtonStart), 0)
	if !out.ModeChanged || state.Mode() != drive.ModeRobotCentric {
		t.Error("re-press should flip back to robot-centric")
	}
}

func TestStep_StateNotMutated(t *testing.T) {
	cfg := testConfig()
	state := NewState(cfg)
	Step(cfg, state, pad(input.ButtonStart), 0)
	if state.FieldCentric.Get() {
		t.Error("Step must not modify the caller's state")
	}
}

func TestStep_RobotCentricIgnoresHeading(t *testing.T) {
	cfg := testConfig()
	g := pad()
	g.LeftX, g.LeftY, g.RightX = 0.4, 0.7, -0.3

	a, _ := Step(cfg, NewState(cfg), g, 0)
	b, _ := Step(cfg, NewState(cfg), g, 137)
	if a.Wheels != b.Wheels {
		t.Errorf("robot-centric output depends on heading: %+v vs %+v", a.Wheels, b.Wheels)
	}
	if b.Heading != 0 {
		t.Errorf("robot-centric output should report heading 0, got %v", b.Heading)
	}
}

func TestStep_ResetEventsAreOneShot(t *testing.T) {
	cfg := testConfig()
	state := NewState(cfg)

	var out Output
	out, state = Step(cfg, state, pad(input.ButtonBack, input.ButtonDpadDown), 0)
	if !out.HeadingReset || !out.PositionReset {
		t.Fatal("first press should fire both resets")
	}
	out, _ = Step(cfg, state, pad(input.ButtonBack, input.ButtonDpadDown), 0)
	if out.HeadingReset || out.PositionReset {
		t.Error("held buttons must not fire again")
	}
}

func TestNewLoop_Errors(t *testing.T) {
	rec := &actuator.Recorder{}
	in := &scriptedInput{}

	bad := DefaultConfig()
	bad.Deadband = 1
	if _, err := NewLoop(bad, in, nil, rec); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid config: got %v", err)
	}
	if _, err := NewLoop(DefaultConfig(), nil, nil, rec); !errors.Is(err, ErrNilSource) {
		t.Errorf("nil input: got %v", err)
	}
	fc := DefaultConfig()
	fc.DefaultFieldCentric = true
	if _, err := NewLoop(fc, in, nil, rec); !errors.Is(err, ErrNoHeadingSource) {
		t.Errorf("field-centric without heading: got %v", err)
	}
}

func TestLoop_TickAppliesCommand(t *testing.T) {
	g := pad()
	g.LeftX = 0.55
	in := &scriptedInput{pads: []input.Gamepad{g}}
	rec := &actuator.Recorder{}

	loop, err := NewLoop(testConfig(), in, nil, rec)
	if err != nil {
		t.Fatal(err)
	}
	out := loop.Tick()

	last, ok := rec.Last()
	if !ok || last != out.Wheels {
		t.Fatalf("sink got %+v, tick returned %+v", last, out.Wheels)
	}
	want := drive.RobotCentric(drive.Velocity(0.5, 0, 0))
	if !wheelsEqual(last, want) {
		t.Errorf("wheels = %+v, want %+v", last, want)
	}
	if loop.Stats().Ticks != 1 {
		t.Errorf("Ticks = %d", loop.Stats().Ticks)
	}
}

func TestLoop_InputErrorKeepsButtons(t *testing.T) {
	moving := pad(input.ButtonStart)
	moving.LeftX = 1
	in := &scriptedInput{
		pads: []input.Gamepad{moving, {}, pad()},
		errs: []error{nil, errors.New("gamepad unplugged"), nil},
	}
	rec := &actuator.Recorder{}
	loop, _ := NewLoop(testConfig(), in, &mockHeading{}, rec)

	loop.Tick()
	if loop.Mode() != drive.ModeFieldCentric {
		t.Fatal("first tick should toggle field-centric")
	}

	out := loop.Tick()
	if !out.Wheels.IsZero() {
		t.Errorf("failed read should stop motion, got %+v", out.Wheels)
	}
	if out.ModeChanged || loop.Mode() != drive.ModeFieldCentric {
		t.Error("failed read must not toggle the mode again")
	}
	if loop.Stats().InputErrors != 1 {
		t.Errorf("InputErrors = %d", loop.Stats().InputErrors)
	}

	loop.Tick()
	if rec.Count() != 3 {
		t.Errorf("every tick should reach the sink, got %d", rec.Count())
	}
}

func TestLoop_HeadingReadOnlyWhenFieldCentric(t *testing.T) {
	hs := &mockHeading{values: []float64{30}}
	in := &scriptedInput{pads: []input.Gamepad{pad(), pad(), pad(input.ButtonStart)}}
	loop, _ := NewLoop(testConfig(), in, hs, &actuator.Recorder{})

	loop.Tick()
	loop.Tick()
	if hs.callCount() != 0 {
		t.Fatalf("robot-centric ticks read heading %d times", hs.callCount())
	}
	out := loop.Tick()
	if hs.callCount() != 1 || out.Heading != 30 {
		t.Errorf("field-centric tick: calls=%d heading=%v", hs.callCount(), out.Heading)
	}
}

func TestLoop_HeadingErrorUsesLastKnownGood(t *testing.T) {
	hs := &mockHeading{
		values: []float64{90, 0},
		errs:   []error{nil, errors.New("imu timeout")},
	}
	cfg := testConfig()
	cfg.DefaultFieldCentric = true
	loop, _ := NewLoop(cfg, &scriptedInput{}, hs, &actuator.Recorder{})

	loop.Tick()
	out := loop.Tick()
	if out.Heading != 90 {
		t.Errorf("Heading = %v, want last good 90", out.Heading)
	}
	if loop.Stats().HeadingErrors != 1 {
		t.Errorf("HeadingErrors = %d", loop.Stats().HeadingErrors)
	}
}

func TestLoop_NonFiniteHeadingUsesLastKnownGood(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1)} {
		g := pad()
		g.LeftY = 1
		hs := &mockHeading{values: []float64{90, bad}}
		cfg := testConfig()
		cfg.DefaultFieldCentric = true
		rec := &actuator.Recorder{}
		loop, _ := NewLoop(cfg, &scriptedInput{pads: []input.Gamepad{g, g}}, hs, actuator.Clamped{Next: rec})

		first := loop.Tick()
		out := loop.Tick()
		if out.Heading != 90 {
			t.Errorf("%v: Heading = %v, want last good 90", bad, out.Heading)
		}
		if !wheelsEqual(out.Wheels, first.Wheels) {
			t.Errorf("%v: wheels = %+v, want %+v", bad, out.Wheels, first.Wheels)
		}
		for i, w := range out.Wheels.Array() {
			if math.IsNaN(w) || w < -1 || w > 1 {
				t.Errorf("%v: wheel %d = %v", bad, i, w)
			}
		}
		if loop.Stats().HeadingErrors != 1 {
			t.Errorf("%v: HeadingErrors = %d", bad, loop.Stats().HeadingErrors)
		}
	}
}

func TestLoop_HeadingNormalized(t *testing.T) {
	hs := &mockHeading{values: []float64{450}}
	cfg := testConfig()
	cfg.DefaultFieldCentric = true
	loop, _ := NewLoop(cfg, &scriptedInput{}, hs, &actuator.Recorder{})

	if out := loop.Tick(); !floatEquals(out.Heading, 90) {
		t.Errorf("Heading = %v, want 90", out.Heading)
	}
}

func TestLoop_SinkErrorDoesNotAbort(t *testing.T) {
	failing := actuator.SinkFunc(func(drive.WheelCommand) error { return errors.New("bus fault") })
	loop, _ := NewLoop(testConfig(), &scriptedInput{}, nil, failing)

	loop.Tick()
	loop.Tick()
	s := loop.Stats()
	if s.Ticks != 2 || s.SinkErrors != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestLoop_StopSendsZeroOnce(t *testing.T) {
	g := pad()
	g.LeftY = 1
	in := &scriptedInput{pads: []input.Gamepad{g, g, g}}
	rec := &actuator.Recorder{}
	loop, _ := NewLoop(testConfig(), in, nil, rec)

	loop.Tick()
	if err := loop.Stop(); err != nil {
		t.Fatal(err)
	}
	loop.Stop()
	loop.Tick()

	cmds := rec.Commands()
	if len(cmds) != 2 {
		t.Fatalf("sink got %d commands, want tick + one stop", len(cmds))
	}
	if !cmds[1].IsZero() {
		t.Errorf("stop command = %+v", cmds[1])
	}
	if !loop.Last().Wheels.IsZero() || !loop.Stopped() {
		t.Error("loop should report stopped with zero wheels")
	}
}

func TestLoop_StartNewSession(t *testing.T) {
	cfg := testConfig()
	loop, _ := NewLoop(cfg, &scriptedInput{pads: []input.Gamepad{pad(input.ButtonStart)}}, &mockHeading{}, &actuator.Recorder{})

	loop.Tick()
	before := loop.Telemetry().Session
	loop.Stop()
	loop.Start()

	if loop.Stopped() {
		t.Error("Start should resume the loop")
	}
	if loop.Mode() != drive.ModeRobotCentric {
		t.Error("Start should restore the default mode")
	}
	if loop.Telemetry().Session == before {
		t.Error("Start should begin a new session")
	}
}

func TestLoop_ResetAndSetMode(t *testing.T) {
	loop, _ := NewLoop(testConfig(), &scriptedInput{}, nil, &actuator.Recorder{})
	if err := loop.SetFieldCentric(true); !errors.Is(err, ErrNoHeadingSource) {
		t.Errorf("SetFieldCentric without heading: %v", err)
	}
	if err := loop.Reset(true); !errors.Is(err, ErrNoHeadingSource) {
		t.Errorf("Reset without heading: %v", err)
	}

	loop, _ = NewLoop(testConfig(), &scriptedInput{}, &mockHeading{}, &actuator.Recorder{})
	if err := loop.SetFieldCentric(true); err != nil || loop.Mode() != drive.ModeFieldCentric {
		t.Fatalf("SetFieldCentric: %v, mode %v", err, loop.Mode())
	}
	if err := loop.Reset(false); err != nil || loop.Mode() != drive.ModeRobotCentric {
		t.Fatalf("Reset: %v, mode %v", err, loop.Mode())
	}
}

func TestLoop_ResetButtonsCallResetters(t *testing.T) {
	hs := &mockHeading{}
	in := &scriptedInput{pads: []input.Gamepad{
		pad(input.ButtonBack),
		pad(input.ButtonBack),
		pad(input.ButtonDpadDown),
	}}
	loop, _ := NewLoop(testConfig(), in, hs, &actuator.Recorder{})

	loop.Tick()
	loop.Tick()
	loop.Tick()
	if hs.headingResets != 1 {
		t.Errorf("headingResets = %d, want 1", hs.headingResets)
	}
	if hs.positionResets != 1 {
		t.Errorf("positionResets = %d, want 1", hs.positionResets)
	}
}

func TestLoop_HeadingResetAppliesSameTick(t *testing.T) {
	g := pad(input.ButtonBack)
	g.LeftY = 1
	cfg := testConfig()
	cfg.DefaultFieldCentric = true
	loop, _ := NewLoop(cfg, &scriptedInput{pads: []input.Gamepad{g}}, heading.NewStatic(90), &actuator.Recorder{})

	out := loop.Tick()
	if !out.HeadingReset || out.Heading != 0 {
		t.Fatalf("HeadingReset = %v, Heading = %v; want true, 0", out.HeadingReset, out.Heading)
	}
	want := Command(cfg, drive.ModeRobotCentric, g, 0).Wheels
	if !wheelsEqual(out.Wheels, want) {
		t.Errorf("wheels = %+v, want straight ahead %+v", out.Wheels, want)
	}
}

func TestLoop_ToggleIgnoredWithoutHeadingSource(t *testing.T) {
	g := pad(input.ButtonStart)
	g.LeftY = 1
	in := &scriptedInput{pads: []input.Gamepad{g, pad(), g}}
	loop, _ := NewLoop(testConfig(), in, nil, &actuator.Recorder{})

	for i := 0; i < 3; i++ {
		out := loop.Tick()
		if out.ModeChanged || out.Mode != drive.ModeRobotCentric {
			t.Errorf("tick %d: ModeChanged = %v, Mode = %v", i, out.ModeChanged, out.Mode)
		}
	}
	if loop.Mode() != drive.ModeRobotCentric {
		t.Errorf("Mode = %v, want robot-centric", loop.Mode())
	}
}

func TestRunner_StopsOnCancel(t *testing.T) {
	g := pad()
	g.LeftY = 1
	in := &scriptedInput{pads: []input.Gamepad{g, g, g, g, g, g, g, g, g, g, g, g, g, g, g, g, g, g, g, g}}
	rec := &actuator.Recorder{}
	cfg := testConfig()
	cfg.HeartbeatTicks = 2
	loop, _ := NewLoop(cfg, in, nil, rec)

	var mu sync.Mutex
	published := 0
	r := NewRunner(loop, 5*time.Millisecond)
	r.SetPublisher(PublisherFunc(func(Telemetry) {
		mu.Lock()
		published++
		mu.Unlock()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan error)
	go func() { done <- r.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}

	cmds := rec.Commands()
	if len(cmds) < 3 {
		t.Fatalf("expected several ticks, got %d commands", len(cmds))
	}
	if !cmds[len(cmds)-1].IsZero() {
		t.Error("last command should be the stop command")
	}
	zeros := 0
	for _, c := range cmds {
		if c.IsZero() {
			zeros++
		}
	}
	if zeros != 1 {
		t.Errorf("got %d zero commands, want exactly 1", zeros)
	}

	mu.Lock()
	defer mu.Unlock()
	if published != len(cmds)-1 {
		t.Errorf("published %d snapshots for %d ticks", published, len(cmds)-1)
	}
}
