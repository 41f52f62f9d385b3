package loadcell

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// RawSample represents one raw amplifier conversion.
type RawSample struct {
	Timestamp time.Time
	Value     int64 // 24-bit signed HX711 count
}

// Average returns the mean of the sample values rounded to the nearest count.
func Average(samples []RawSample) int64 {
	if len(samples) == 0 {
		return 0
	}

	var sum int64
	for _, s := range samples {
		sum += s.Value
	}

	n := int64(len(samples))
	// Round half away from zero
	if sum >= 0 {
		return (sum + n/2) / n
	}
	return (sum - n/2) / n
}

// readAverage discards stale samples buffered in ch, then collects n fresh ones
// and returns their average. Each sample must arrive within timeout.
func readAverage(ctx context.Context, ch <-chan RawSample, n int, timeout time.Duration) (int64, error) {
	if n <= 0 {
		n = 1
	}

	drain(ch)

	buf := make([]RawSample, 0, n)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(buf) < n {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case s, ok := <-ch:
			if !ok {
				return 0, errors.Wrap(ErrSensorUnavailable, "sample stream closed")
			}
			buf = append(buf, s)
			timer.Reset(timeout)
		case <-timer.C:
			return 0, errors.Wrapf(ErrSensorUnavailable, "no sample within %s (%d/%d)", timeout, len(buf), n)
		}
	}

	return Average(buf), nil
}

// drain removes already buffered samples without blocking.
func drain(ch <-chan RawSample) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
