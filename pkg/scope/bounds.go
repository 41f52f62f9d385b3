package scope

import "github.com/itohio/tensile/pkg/companion"

// bounds is the visible data range.
type bounds struct {
	yMin, yMax float64 // Force
	xMin, xMax float64 // Seconds since test start
}

// autoScale fits records with a 10% vertical margin and a horizontal span of at
// least window seconds. Zero is always inside the vertical range.
func autoScale(records []companion.Record, window float64) bounds {
	if window <= 0 {
		window = 10
	}
	if len(records) == 0 {
		return bounds{yMin: 0, yMax: 1, xMin: 0, xMax: window}
	}

	b := bounds{
		xMin: records[0].Timestamp,
		xMax: records[len(records)-1].Timestamp,
	}
	for _, r := range records {
		b.yMin = min(b.yMin, r.Current, r.Peak)
		b.yMax = max(b.yMax, r.Current, r.Peak)
	}

	span := b.yMax - b.yMin
	if span == 0 {
		span = 1
	}
	b.yMin -= span * 0.1
	b.yMax += span * 0.1

	if b.xMax-b.xMin < window {
		b.xMax = b.xMin + window
	}
	return b
}

// project maps a data point into the plot rectangle.
func (b bounds) project(t, v float64, x, y, w, h float32) (float32, float32) {
	px := x + float32((t-b.xMin)/(b.xMax-b.xMin))*w
	py := y + h - float32((v-b.yMin)/(b.yMax-b.yMin))*h
	return px, py
}
