package drive

import "errors"

// ErrInvalidPolicy is returned when a speed policy has a non-positive multiplier.
var ErrInvalidPolicy = errors.New("drive: invalid speed policy")
