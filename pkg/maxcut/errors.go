package maxcut

import "errors"

var (
	// ErrInvalidParameter is returned when a run is configured with values it cannot execute.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDimensionMismatch indicates a solution that does not fit the graph it is evaluated against.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
