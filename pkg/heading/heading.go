// Package heading provides heading sources for field-centric drive.
// Headings are degrees, counter-clockwise positive, in (-180, 180].
package heading

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/teslashibe/go-mecanum/pkg/input"
)

var (
	// ErrNoHeading is returned before the first good reading.
	ErrNoHeading = errors.New("heading: no reading yet")

	// ErrNonFinite is recorded when a source reports NaN or an infinity.
	ErrNonFinite = errors.New("heading: non-finite reading")

	// ErrNoPosition is returned by ResetPosition when the source has no
	// position estimate.
	ErrNoPosition = errors.New("heading: source does not track position")
)

// Source yields a raw heading in degrees.
type Source interface {
	Heading() (float64, error)
}

type resetter interface {
	ResetHeading() error
}

// Tracker wraps a raw source with a zero offset and last-known-good
// fallback. A failed read returns the previous good heading with a nil error,
// so callers only see an error until the first success.
type Tracker struct {
	src Source

	mu       sync.Mutex
	offset   float64
	last     float64
	valid    bool
	failures uint64
	lastErr  error
}

// NewTracker wraps src.
func NewTracker(src Source) *Tracker {
	return &Tracker{src: src}
}

// Heading returns the offset-corrected heading.
func (t *Tracker) Heading() (float64, error) {
	raw, err := t.src.Heading()
	if err == nil && !finite(raw) {
		err = fmt.Errorf("%w: %v", ErrNonFinite, raw)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.failures++
		t.lastErr = err
		if !t.valid {
			return 0, fmt.Errorf("%w: %v", ErrNoHeading, err)
		}
		return t.last, nil
	}
	t.last = input.NormalizeAngle(raw - t.offset)
	t.valid = true
	return t.last, nil
}

// ResetHeading makes the current heading read as zero. A source that can
// zero itself, such as a robot link, is asked to; any other source is zeroed
// here by capturing its current raw reading as the offset.
func (t *Tracker) ResetHeading() error {
	if r, ok := t.src.(resetter); ok {
		if err := r.ResetHeading(); err != nil {
			return fmt.Errorf("heading: reset: %w", err)
		}
		t.mu.Lock()
		t.offset = 0
		t.last = 0
		t.valid = true
		t.mu.Unlock()
		return nil
	}

	raw, err := t.src.Heading()
	if err == nil && !finite(raw) {
		err = fmt.Errorf("%w: %v", ErrNonFinite, raw)
	}
	if err != nil {
		return fmt.Errorf("heading: reset: %w", err)
	}
	t.mu.Lock()
	t.offset = raw
	t.last = 0
	t.valid = true
	t.mu.Unlock()
	return nil
}

// ResetPosition forwards to the source when it tracks position.
func (t *Tracker) ResetPosition() error {
	r, ok := t.src.(interface{ ResetPosition() error })
	if !ok {
		return ErrNoPosition
	}
	return r.ResetPosition()
}

// Failures returns how many raw reads failed and the most recent error.
func (t *Tracker) Failures() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures, t.lastErr
}

func finite(deg float64) bool {
	return !math.IsNaN(deg) && !math.IsInf(deg, 0)
}

// Static is a fixed heading, for simulation and tests.
type Static struct {
	mu  sync.Mutex
	deg float64
}

// NewStatic returns a source fixed at deg.
func NewStatic(deg float64) *Static {
	return &Static{deg: input.NormalizeAngle(deg)}
}

// Heading implements Source.
func (s *Static) Heading() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deg, nil
}

// Set changes the fixed heading.
func (s *Static) Set(deg float64) {
	s.mu.Lock()
	s.deg = input.NormalizeAngle(deg)
	s.mu.Unlock()
}

// ResetHeading sets the heading to zero.
func (s *Static) ResetHeading() error {
	s.Set(0)
	return nil
}
