// Package calibration converts raw load-cell amplifier counts into physical values
// using piecewise-linear interpolation over a table of calibration points.
//
// Readings outside the calibrated span are clamped to the nearest endpoint, never
// extrapolated.
package calibration

import (
	"sort"

	"github.com/pkg/errors"
)

// Point is one measured correspondence between a raw ADC count and a known physical value.
type Point struct {
	Raw   int64   `yaml:"raw" json:"raw"`
	Value float64 `yaml:"value" json:"value"`
}

// Table is an immutable set of calibration points in strictly ascending raw order.
type Table struct {
	points []Point
}

// New creates a table from points that are already in strictly ascending raw order.
func New(points ...Point) (*Table, error) {
	if len(points) == 0 {
		return nil, ErrEmpty
	}

	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		switch {
		case curr.Raw == prev.Raw:
			return nil, errors.Wrapf(ErrDegenerateSegment, "points %d and %d share raw %d", i-1, i, curr.Raw)
		case curr.Raw < prev.Raw:
			return nil, errors.Wrapf(ErrUnordered, "point %d raw %d follows %d", i, curr.Raw, prev.Raw)
		}
	}

	p := make([]Point, len(points))
	copy(p, points)
	return &Table{points: p}, nil
}

// Convert maps a raw reading to a physical value.
//
// Raw values at or below the first point return the first value, raw values at or
// above the last point return the last value. Anything in between is interpolated
// linearly on the bracketing segment.
func (t *Table) Convert(raw int64) float64 {
	p := t.points
	first, last := p[0], p[len(p)-1]

	if len(p) < 2 || raw <= first.Raw {
		return first.Value
	}
	if raw >= last.Raw {
		return last.Value
	}

	// first index with p[i].Raw >= raw; always in [1, len(p)-1] here
	i := sort.Search(len(p), func(i int) bool { return p[i].Raw >= raw })
	hi := p[i]
	if hi.Raw == raw {
		return hi.Value
	}
	lo := p[i-1]

	return lo.Value + float64(raw-lo.Raw)*(hi.Value-lo.Value)/float64(hi.Raw-lo.Raw)
}

// TestCalibration exposes Convert for diagnostic sweeps.
func (t *Table) TestCalibration(raw int64) float64 {
	return t.Convert(raw)
}

// Points returns a copy of the calibration points.
func (t *Table) Points() []Point {
	result := make([]Point, len(t.points))
	copy(result, t.points)
	return result
}

// Len returns the number of calibration points.
func (t *Table) Len() int {
	return len(t.points)
}

// Range returns the lowest and highest calibration points.
func (t *Table) Range() (lo, hi Point) {
	return t.points[0], t.points[len(t.points)-1]
}
