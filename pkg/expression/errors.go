package expression

import "errors"

var (
	// ErrInvalidInput is returned when a frame is too short, misses a landmark
	// the layout needs, or contains non-finite coordinates. The frame is
	// skipped and engine state is left untouched.
	ErrInvalidInput = errors.New("expression: invalid input")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("expression: invalid config")
)
