package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/tensile/pkg/calibration"
)

func TestWriteSweep(t *testing.T) {
	table, err := calibration.New(
		calibration.Point{Raw: 1000, Value: -10000},
		calibration.Point{Raw: 2000, Value: 20000},
	)
	require.NoError(t, err)

	sink := &memorySink{}
	require.NoError(t, WriteSweep(sink, table, SweepRange{Start: 0, Stop: 2500, Step: 500}))
	assert.Equal(t, []string{
		"0\t-10000.00",
		"500\t-10000.00",
		"1000\t-10000.00",
		"1500\t5000.00",
		"2000\t20000.00",
		"2500\t20000.00",
	}, sink.Lines())
}

func TestStartup_Cancelled(t *testing.T) {
	table, err := calibration.New(calibration.Point{Raw: 0, Value: 0})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memorySink{}
	err = Startup(ctx, sink, table, &SweepRange{Start: 0, Stop: 40, Step: 20}, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.Lines(), 3)
}
