// Package reading turns raw load-cell samples into calibrated readings, tracks the
// running peak and formats output lines.
package reading

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/itohio/tensile/pkg/calibration"
	"github.com/itohio/tensile/pkg/loadcell"
)

// Sampler yields raw ADC counts averaged over a number of samples.
type Sampler interface {
	ReadRaw(ctx context.Context, samples int) (int64, error)
}

var _ Sampler = (loadcell.Source)(nil)

// Pipeline performs one measurement cycle: acquire, convert, track peak, format.
type Pipeline struct {
	src     Sampler
	table   *calibration.Table
	state   *State
	samples int

	retryDelay time.Duration
	maxRetries int

	now func() time.Time
	log *logrus.Entry
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSamples sets how many raw samples are averaged per reading.
func WithSamples(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.samples = n
		}
	}
}

// WithRetry sets the delay between retries of an unavailable sensor and the
// maximum number of retries. maxRetries 0 retries until the context is done.
func WithRetry(delay time.Duration, maxRetries int) Option {
	return func(p *Pipeline) {
		p.retryDelay = delay
		p.maxRetries = maxRetries
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates a pipeline reading from src and converting through table.
// If state is nil a CSV state starting now is created.
func NewPipeline(src Sampler, table *calibration.Table, state *State, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:        src,
		table:      table,
		state:      state,
		samples:    5,
		retryDelay: 100 * time.Millisecond,
		now:        time.Now,
		log:        logrus.WithField("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.state == nil {
		p.state = NewState(CSV, p.now())
	}
	return p
}

// State returns the pipeline state.
func (p *Pipeline) State() *State {
	return p.state
}

// Table returns the calibration table.
func (p *Pipeline) Table() *calibration.Table {
	return p.table
}

// TakeReading acquires one physical value and updates the running peak.
// An unavailable sensor is retried; any other error is returned as is.
func (p *Pipeline) TakeReading(ctx context.Context) (current, peak float64, err error) {
	raw, err := p.readRaw(ctx)
	if err != nil {
		return 0, p.state.Peak.Value(), err
	}

	current = p.table.Convert(raw)
	p.state.Current = current
	peak = p.state.Peak.Update(current)

	p.log.WithFields(logrus.Fields{
		"raw":     raw,
		"current": current,
		"peak":    peak,
	}).Trace("reading")

	return current, peak, nil
}

func (p *Pipeline) readRaw(ctx context.Context) (int64, error) {
	for attempt := 0; ; attempt++ {
		raw, err := p.src.ReadRaw(ctx, p.samples)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, loadcell.ErrSensorUnavailable) {
			return 0, err
		}
		if p.maxRetries > 0 && attempt >= p.maxRetries {
			return 0, errors.Wrapf(err, "gave up after %d retries", attempt)
		}

		p.log.WithError(err).WithField("attempt", attempt+1).Warn("sensor unavailable, retrying")

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(p.retryDelay):
		}
	}
}

// ResetPeak sets the running peak to zero.
func (p *Pipeline) ResetPeak() {
	p.state.Peak.Reset()
}

// NewTest resets the peak and the test start time.
func (p *Pipeline) NewTest() {
	p.state.NewTest(p.now())
}

// Reading returns the latest values with elapsed time measured now.
func (p *Pipeline) Reading() Reading {
	return Reading{
		Elapsed: p.state.Elapsed(p.now()),
		Current: p.state.Current,
		Peak:    p.state.Peak.Value(),
	}
}

// Format renders the latest reading in the current output mode.
func (p *Pipeline) Format() string {
	return FormatterFor(p.state.Mode).Format(p.Reading())
}
