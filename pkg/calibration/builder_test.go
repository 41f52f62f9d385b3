package calibration

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SetCalibrate_OutOfRange(t *testing.T) {
	b := NewBuilder(2)

	assert.NoError(t, b.SetCalibrate(0, 0, 0))
	assert.NoError(t, b.SetCalibrate(1, 100, 10))

	err := b.SetCalibrate(2, 200, 20)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	err = b.SetCalibrate(-1, 200, 20)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestBuilder_Build_SortsSlots(t *testing.T) {
	b := NewBuilder(3)
	require.NoError(t, b.SetCalibrate(0, 2000, 20000))
	require.NoError(t, b.SetCalibrate(1, 1000, -10000))
	require.NoError(t, b.SetCalibrate(2, 1300, 0))

	table, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []Point{{1000, -10000}, {1300, 0}, {2000, 20000}}, table.Points())
	assert.Equal(t, 10000.0, table.Convert(1650))
}

func TestBuilder_Build_Errors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := NewBuilder(0).Build()
		assert.True(t, errors.Is(err, ErrEmpty))
	})

	t.Run("incomplete", func(t *testing.T) {
		b := NewBuilder(3)
		require.NoError(t, b.SetCalibrate(0, 0, 0))
		require.NoError(t, b.SetCalibrate(2, 100, 1))
		_, err := b.Build()
		assert.True(t, errors.Is(err, ErrIncomplete))
	})

	t.Run("duplicate raw", func(t *testing.T) {
		b := NewBuilder(2)
		require.NoError(t, b.SetCalibrate(0, 100, 0))
		require.NoError(t, b.SetCalibrate(1, 100, 1))
		_, err := b.Build()
		assert.True(t, errors.Is(err, ErrDegenerateSegment))
	})
}

func TestBuilder_OverwriteSlot(t *testing.T) {
	b := NewBuilder(2)
	require.NoError(t, b.SetCalibrate(0, 0, 0))
	require.NoError(t, b.SetCalibrate(1, 100, 10))
	require.NoError(t, b.SetCalibrate(1, 200, 10))

	table, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 5.0, table.Convert(100))
}

func TestFromPoints(t *testing.T) {
	table, err := FromPoints([]Point{{100, 10}, {0, 0}})
	require.NoError(t, err)
	assert.Equal(t, 5.0, table.Convert(50))

	_, err = FromPoints(nil)
	assert.True(t, errors.Is(err, ErrEmpty))
}
