package loadcell

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplesOf(values ...int64) []RawSample {
	result := make([]RawSample, len(values))
	for i, v := range values {
		result[i] = RawSample{Value: v}
	}
	return result
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		want   int64
	}{
		{"empty", nil, 0},
		{"single", []int64{81470}, 81470},
		{"exact", []int64{10, 20, 30}, 20},
		{"round up", []int64{1, 2}, 2},
		{"round down", []int64{1, 1, 2}, 1},
		{"negative round", []int64{-1, -2}, -2},
		{"mixed sign", []int64{-100, 100, 3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Average(samplesOf(tt.values...)))
		})
	}
}

func TestReadAverage_DrainsStale(t *testing.T) {
	ch := make(chan RawSample, 10)
	ch <- RawSample{Value: 9999}
	ch <- RawSample{Value: 9999}

	go func() {
		time.Sleep(20 * time.Millisecond)
		ch <- RawSample{Value: 10}
		ch <- RawSample{Value: 20}
	}()

	got, err := readAverage(context.Background(), ch, 2, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(15), got)
}

func TestReadAverage_ContextCancelled(t *testing.T) {
	ch := make(chan RawSample)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := readAverage(ctx, ch, 1, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadAverage_Timeout(t *testing.T) {
	ch := make(chan RawSample)

	start := time.Now()
	_, err := readAverage(context.Background(), ch, 1, 50*time.Millisecond)
	assert.True(t, errors.Is(err, ErrSensorUnavailable))
	assert.Less(t, time.Since(start), time.Second)
}
