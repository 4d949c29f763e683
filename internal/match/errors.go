package match

import "github.com/pkg/errors"

// Error kinds returned by the matcher. Callers test with errors.Is or
// errors.Cause; call sites wrap them with context.
var (
	// ErrInvalidInput is returned before any search runs: empty images,
	// mismatched channels, a reference point outside the template or a
	// non-positive target precision.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSearchFailure is returned when a resampling or correlation stage
	// produced no usable output, or when the geometry leaves no room for a
	// rotation-safe template.
	ErrSearchFailure = errors.New("search failure")
)

func invalidInput(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}

func searchFailure(format string, args ...interface{}) error {
	return errors.Wrapf(ErrSearchFailure, format, args...)
}
