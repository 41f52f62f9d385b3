package loadcell

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrSensorUnavailable is returned when the amplifier produced no data in time.
	ErrSensorUnavailable = errors.New("sensor unavailable")
	// ErrNotConnected is returned when reading from a closed source.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned by a second Connect.
	ErrAlreadyConnected = errors.New("already connected")
)

// Source defines the interface for raw load-cell sources (real or mocked).
type Source interface {
	Connect() error
	Close() error
	ReadRaw(ctx context.Context, samples int) (int64, error)
	IsConnected() bool
}

// Ensure Serial implements Source.
var _ Source = (*Serial)(nil)

// Ensure Mock implements Source.
var _ Source = (*Mock)(nil)
