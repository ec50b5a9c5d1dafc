package teleop

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("teleop: invalid config")

	// ErrNilSource is returned when a loop is built without an input source or sink.
	ErrNilSource = errors.New("teleop: input source and sink required")

	// ErrNoHeadingSource is returned when field-centric drive is requested without a heading source.
	ErrNoHeadingSource = errors.New("teleop: field-centric drive needs a heading source")

	// ErrBadHeading is reported when a heading source returns NaN or an infinity.
	ErrBadHeading = errors.New("teleop: non-finite heading")
)
