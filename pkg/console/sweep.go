package console

import (
	"context"
	"strconv"
	"time"

	"github.com/itohio/tensile/pkg/calibration"
)

// SweepRange selects the raw values printed at startup.
type SweepRange struct {
	Start, Stop, Step int64
}

// WriteSweep prints "raw<TAB>value" for every raw value in rng.
func WriteSweep(sink Sink, table *calibration.Table, rng SweepRange) error {
	points, err := table.Sweep(rng.Start, rng.Stop, rng.Step)
	if err != nil {
		return err
	}

	for _, p := range points {
		line := strconv.FormatInt(p.Raw, 10) + "\t" + strconv.FormatFloat(p.Value, 'f', 2, 64)
		if err := sink.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

// Startup prints the sweep (when rng is not nil) and waits delay.
func Startup(ctx context.Context, sink Sink, table *calibration.Table, rng *SweepRange, delay time.Duration) error {
	if rng != nil {
		if err := WriteSweep(sink, table, *rng); err != nil {
			return err
		}
	}

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
