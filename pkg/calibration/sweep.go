package calibration

import "github.com/pkg/errors"

// SweepPoint is one row of a diagnostic sweep.
type SweepPoint struct {
	Raw   int64
	Value float64
}

// Sweep evaluates the table for raw = start, start+step, ... up to and including stop.
// It is used to print the calibration curve for manual verification.
func (t *Table) Sweep(start, stop, step int64) ([]SweepPoint, error) {
	if step <= 0 {
		return nil, errors.Wrapf(ErrInvalidStep, "step %d", step)
	}
	if stop < start {
		return nil, nil
	}

	n := (uint64(stop)-uint64(start))/uint64(step) + 1
	result := make([]SweepPoint, 0, min(n, maxSweepPrealloc))
	for raw := start; ; raw += step {
		result = append(result, SweepPoint{Raw: raw, Value: t.TestCalibration(raw)})
		// Unsigned distance: raw+step would pass stop or overflow
		if uint64(stop)-uint64(raw) < uint64(step) {
			break
		}
	}
	return result, nil
}

const maxSweepPrealloc = 1 << 16
