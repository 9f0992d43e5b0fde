package landmark

import "errors"

var (
	// ErrMissingLandmark is returned when a frame does not contain an index the layout needs.
	ErrMissingLandmark = errors.New("landmark: missing landmark")

	// ErrUnknownLayout is returned when a layout name is not registered.
	ErrUnknownLayout = errors.New("landmark: unknown layout")

	// ErrInvalidLayout is returned when a layout has a negative index.
	ErrInvalidLayout = errors.New("landmark: invalid layout")
)
