// Package console implements the interactive measurement loop: a paused menu
// driven by single-character commands and a measuring state that emits one reading
// per period.
package console

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/itohio/tensile/pkg/reading"
	"github.com/itohio/tensile/pkg/units"
)

// ErrInterrupted is returned by Run when Ctrl-C arrives on the command input.
var ErrInterrupted = errors.New("interrupted")

// State of the controller.
type State int

const (
	Paused State = iota
	Measuring
)

func (s State) String() string {
	if s == Measuring {
		return "measuring"
	}
	return "paused"
}

// DefaultPeriod is the interval between readings while measuring.
const DefaultPeriod = 500 * time.Millisecond

// Controller owns the measuring/paused state machine.
type Controller struct {
	pipeline *reading.Pipeline
	sink     Sink
	unit     units.Unit
	period   time.Duration
	state    State
	log      *logrus.Entry
}

// NewController creates a paused controller.
func NewController(pipeline *reading.Pipeline, sink Sink, unit units.Unit, period time.Duration) *Controller {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Controller{
		pipeline: pipeline,
		sink:     sink,
		unit:     unit,
		period:   period,
		state:    Paused,
		log:      logrus.WithField("component", "controller"),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// ShowMenu writes the paused menu.
func (c *Controller) ShowMenu() error {
	st := c.pipeline.State()
	for _, line := range menuLines(st.Peak.Value(), c.unit, st.Mode) {
		if err := c.sink.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

// Handle applies one command byte. Unknown bytes are ignored.
func (c *Controller) Handle(cmd byte) error {
	prev := c.state
	err := c.handle(cmd)
	if c.state != prev {
		c.log.WithFields(logrus.Fields{
			"command": string(cmd),
			"from":    prev,
			"to":      c.state,
		}).Debug("state changed")
	}
	return err
}

func (c *Controller) handle(cmd byte) error {
	if c.state == Measuring {
		if cmd != cmdEscape {
			return nil
		}
		c.state = Paused
		return c.ShowMenu()
	}

	switch cmd {
	case cmdResume:
		c.state = Measuring
		return c.sink.WriteLine("Resuming measurements...")
	case cmdNewTest:
		c.pipeline.NewTest()
		c.state = Measuring
		return c.sink.WriteLine("Starting new test...")
	case cmdToggle:
		mode := c.pipeline.State().ToggleMode()
		if err := c.sink.WriteLine("Output format changed to: " + mode.String()); err != nil {
			return err
		}
		return c.ShowMenu()
	case cmdCalib:
		return c.sink.WriteLine("Calibration mode not yet implemented.")
	}
	return nil
}

// Measure takes one reading and writes it in the current format.
func (c *Controller) Measure(ctx context.Context) error {
	if _, _, err := c.pipeline.TakeReading(ctx); err != nil {
		return err
	}
	return c.sink.WriteLine(c.pipeline.Format())
}

// Run shows the menu and processes commands until ctx is done. While measuring,
// one reading is written on entry and then one per period. A reading in progress
// is abandoned when the escape command or Ctrl-C arrives.
func (c *Controller) Run(ctx context.Context, commands <-chan byte) error {
	if err := c.ShowMenu(); err != nil {
		return err
	}

	var (
		ticker *time.Ticker
		tick   <-chan time.Time

		inFlight     <-chan error
		abortReading context.CancelFunc
	)
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	startReading := func() {
		if inFlight != nil {
			c.log.Trace("previous reading still running, skipping tick")
			return
		}
		rctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- c.Measure(rctx) }()
		inFlight, abortReading = done, cancel
	}
	finishReading := func(err error) {
		abortReading()
		inFlight, abortReading = nil, nil
		if err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			c.log.WithError(err).Warn("reading failed")
		}
	}
	stopReading := func() {
		if inFlight != nil {
			abortReading()
			finishReading(<-inFlight)
		}
	}
	defer stopTicker()
	defer stopReading()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-inFlight:
			finishReading(err)

		case cmd, ok := <-commands:
			if !ok {
				c.log.Debug("command input closed")
				commands = nil
				continue
			}
			if cmd == Interrupt {
				return ErrInterrupted
			}
			if cmd == cmdEscape {
				stopReading()
			}

			prev := c.state
			if err := c.Handle(cmd); err != nil {
				return err
			}

			switch {
			case prev == Paused && c.state == Measuring:
				ticker = time.NewTicker(c.period)
				tick = ticker.C
				startReading()
			case prev == Measuring && c.state == Paused:
				stopTicker()
			}

		case <-tick:
			startReading()
		}
	}
}
