package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound means an archived trip, stop or alert does not exist.
// Handlers answer 404.
var ErrNotFound = errors.New("not found")

// ErrValidation marks input the logbook refuses: an unknown vehicle class,
// a negative odometer, a coordinate out of range. Handlers answer 422.
var ErrValidation = errors.New("validation error")

// Invalidf returns an error wrapping ErrValidation with a formatted reason.
// The reason after "validation error: " is what clients see.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
