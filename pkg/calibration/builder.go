package calibration

import (
	"sort"

	"github.com/pkg/errors"
)

// Builder collects a fixed number of calibration points by slot index, in any order,
// and produces a sorted Table.
type Builder struct {
	slots []Point
	set   []bool
}

// NewBuilder creates a builder with capacity for n points.
func NewBuilder(n int) *Builder {
	if n < 0 {
		n = 0
	}
	return &Builder{
		slots: make([]Point, n),
		set:   make([]bool, n),
	}
}

// Cap returns the number of slots.
func (b *Builder) Cap() int {
	return len(b.slots)
}

// SetCalibrate writes the point at slot.
func (b *Builder) SetCalibrate(slot int, raw int64, value float64) error {
	if slot < 0 || slot >= len(b.slots) {
		return errors.Wrapf(ErrOutOfRange, "slot %d not in [0,%d)", slot, len(b.slots))
	}
	b.slots[slot] = Point{Raw: raw, Value: value}
	b.set[slot] = true
	return nil
}

// Build sorts the points by raw value and returns the finished table.
// Every slot must be set and raw values must be unique.
func (b *Builder) Build() (*Table, error) {
	if len(b.slots) == 0 {
		return nil, ErrEmpty
	}
	for i, ok := range b.set {
		if !ok {
			return nil, errors.Wrapf(ErrIncomplete, "slot %d not set", i)
		}
	}

	points := make([]Point, len(b.slots))
	copy(points, b.slots)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Raw < points[j].Raw })

	return New(points...)
}

// FromPoints builds a table from points given in any order.
func FromPoints(points []Point) (*Table, error) {
	b := NewBuilder(len(points))
	for i, p := range points {
		if err := b.SetCalibrate(i, p.Raw, p.Value); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
