package weccapgo

import "errors"

// Error taxonomy (§7). Stage functions return one of these (wrapped with
// fmt.Errorf("%w: ...") for context) so callers can classify failures
// without string matching.
var (
	// ErrInputShape marks a wrong-dimension matrix or vector at an API boundary.
	ErrInputShape = errors.New("weccapgo: input shape")

	// ErrDegenerateGeometry marks undefined fundamental-matrix estimation,
	// triangulation with fewer than two views, or a plane fit on fewer than
	// three points.
	ErrDegenerateGeometry = errors.New("weccapgo: degenerate geometry")

	// ErrNumericFailure marks a non-converging SVD or a Rodrigues input that
	// is not a valid rotation.
	ErrNumericFailure = errors.New("weccapgo: numeric failure")

	// ErrDeviceFailure marks a camera acquisition failure.
	ErrDeviceFailure = errors.New("weccapgo: device failure")

	// ErrInvalidTransition marks a rejected mode transition (§4.11).
	ErrInvalidTransition = errors.New("weccapgo: invalid mode transition")
)
