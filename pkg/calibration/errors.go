package calibration

import "github.com/pkg/errors"

var (
	// ErrOutOfRange is returned when a calibration slot index is outside the table capacity.
	ErrOutOfRange = errors.New("calibration slot out of range")
	// ErrDegenerateSegment is returned when two adjacent points share the same raw value.
	ErrDegenerateSegment = errors.New("degenerate calibration segment")
	// ErrUnordered is returned when points are not in strictly ascending raw order.
	ErrUnordered = errors.New("calibration points not in ascending raw order")
	// ErrEmpty is returned when a table would have no points.
	ErrEmpty = errors.New("calibration table is empty")
	// ErrIncomplete is returned when a builder still has unset slots.
	ErrIncomplete = errors.New("calibration table incomplete")
	// ErrInvalidStep is returned for non-positive sweep steps.
	ErrInvalidStep = errors.New("sweep step must be positive")
)
