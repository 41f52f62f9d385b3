package console

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/tensile/pkg/calibration"
	"github.com/itohio/tensile/pkg/loadcell"
	"github.com/itohio/tensile/pkg/reading"
	"github.com/itohio/tensile/pkg/units"
)

// memorySink records lines.
type memorySink struct {
	mu    sync.Mutex
	lines []string
}

func (m *memorySink) WriteLine(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, text)
	return nil
}

func (m *memorySink) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

func (m *memorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
}

// constSampler always returns raw.
type constSampler struct {
	mu  sync.Mutex
	raw int64
}

func (s *constSampler) ReadRaw(context.Context, int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw, nil
}

func (s *constSampler) Set(raw int64) {
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
}

func newTestController(t *testing.T, raw int64) (*Controller, *memorySink, *constSampler) {
	t.Helper()
	table, err := calibration.New(
		calibration.Point{Raw: 0, Value: 0},
		calibration.Point{Raw: 1000, Value: 10},
	)
	require.NoError(t, err)

	src := &constSampler{raw: raw}
	sink := &memorySink{}
	p := reading.NewPipeline(src, table, nil)
	return NewController(p, sink, units.MustParse("kN"), 20*time.Millisecond), sink, src
}

func TestController_InitialState(t *testing.T) {
	c, _, _ := newTestController(t, 0)
	assert.Equal(t, Paused, c.State())
}

func TestController_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		commands string
		want     State
	}{
		{"resume", "r", Measuring},
		{"new test", "x", Measuring},
		{"toggle stays paused", "j", Paused},
		{"calibration stays paused", "c", Paused},
		{"unknown ignored", "q", Paused},
		{"upper case ignored", "R", Paused},
		{"escape from measuring", "rx", Paused},
		{"resume ignored while measuring", "rr", Measuring},
		{"toggle ignored while measuring", "rj", Measuring},
		{"toggle then resume", "jr", Measuring},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController(t, 0)
			for i := 0; i < len(tt.commands); i++ {
				require.NoError(t, c.Handle(tt.commands[i]))
			}
			assert.Equal(t, tt.want, c.State())
		})
	}
}

func TestController_Menu(t *testing.T) {
	c, sink, _ := newTestController(t, 0)
	require.NoError(t, c.ShowMenu())

	lines := sink.Lines()
	require.Len(t, lines, 7)
	assert.Equal(t, "Measurement Paused. Peak: 0.00 kN", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "--------", lines[2])
	assert.Equal(t, "j) Toggle output format (current: CSV)", lines[5])
}

func TestController_ToggleFormat(t *testing.T) {
	c, sink, _ := newTestController(t, 0)
	require.NoError(t, c.Handle('j'))

	lines := sink.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "Output format changed to: JSON", lines[0])
	assert.Contains(t, lines, "j) Toggle output format (current: JSON)")
	assert.Equal(t, reading.Structured, c.pipeline.State().Mode)
}

func TestController_CalibrationAck(t *testing.T) {
	c, sink, _ := newTestController(t, 0)
	require.NoError(t, c.Handle('c'))
	assert.Equal(t, []string{"Calibration mode not yet implemented."}, sink.Lines())
}

func TestController_NewTestResetsPeak(t *testing.T) {
	c, sink, src := newTestController(t, 800)
	ctx := context.Background()

	require.NoError(t, c.Handle('r'))
	require.NoError(t, c.Measure(ctx))
	assert.Equal(t, "8.00,8.00", sink.Lines()[len(sink.Lines())-1])

	src.Set(300)
	require.NoError(t, c.Measure(ctx))
	assert.Equal(t, "3.00,8.00", sink.Lines()[len(sink.Lines())-1])

	require.NoError(t, c.Handle('x'))
	assert.Equal(t, Paused, c.State())
	assert.Contains(t, sink.Lines(), "Measurement Paused. Peak: 8.00 kN")

	require.NoError(t, c.Handle('x'))
	assert.Equal(t, Measuring, c.State())
	require.NoError(t, c.Measure(ctx))
	assert.Equal(t, "3.00,3.00", sink.Lines()[len(sink.Lines())-1])
}

func countReadings(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.Count(l, ",") == 1 && !strings.Contains(l, " ") {
			n++
		}
	}
	return n
}

func TestController_Run(t *testing.T) {
	c, sink, _ := newTestController(t, 500)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commands := make(chan byte)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, commands) }()

	commands <- 'r'
	require.Eventually(t, func() bool {
		return countReadings(sink.Lines()) >= 3
	}, time.Second, 5*time.Millisecond)

	commands <- 'x'
	require.Eventually(t, func() bool {
		lines := sink.Lines()
		return len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "c)")
	}, time.Second, 5*time.Millisecond)

	sink.Reset()
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, countReadings(sink.Lines()), "no readings while paused")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestController_RunImmediateReading(t *testing.T) {
	table, err := calibration.New(calibration.Point{Raw: 0, Value: 0}, calibration.Point{Raw: 1000, Value: 10})
	require.NoError(t, err)
	sink := &memorySink{}
	c := NewController(reading.NewPipeline(&constSampler{raw: 250}, table, nil), sink, units.MustParse("kN"), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	commands := make(chan byte, 1)
	go func() { _ = c.Run(ctx, commands) }()

	commands <- 'x'
	require.Eventually(t, func() bool {
		lines := sink.Lines()
		return len(lines) > 0 && lines[len(lines)-1] == "2.50,2.50"
	}, time.Second, 5*time.Millisecond)
}

func TestController_RunInterrupt(t *testing.T) {
	c, _, _ := newTestController(t, 0)
	commands := make(chan byte, 1)
	commands <- Interrupt
	assert.ErrorIs(t, c.Run(context.Background(), commands), ErrInterrupted)
}

// deadSampler reports an unavailable sensor until the context is done.
type deadSampler struct {
	calls atomic.Int32
}

func (s *deadSampler) ReadRaw(context.Context, int) (int64, error) {
	s.calls.Add(1)
	return 0, loadcell.ErrSensorUnavailable
}

func newDeadController(t *testing.T) (*Controller, *memorySink, *deadSampler) {
	t.Helper()
	table, err := calibration.New(calibration.Point{Raw: 0, Value: 0}, calibration.Point{Raw: 1000, Value: 10})
	require.NoError(t, err)

	src := &deadSampler{}
	sink := &memorySink{}
	p := reading.NewPipeline(src, table, nil, reading.WithRetry(10*time.Millisecond, 0))
	return NewController(p, sink, units.MustParse("kN"), 20*time.Millisecond), sink, src
}

func TestController_EscapeWhileSensorUnavailable(t *testing.T) {
	c, sink, src := newDeadController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commands := make(chan byte)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, commands) }()

	commands <- 'r'
	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	commands <- 'x'
	require.Eventually(t, func() bool {
		lines := sink.Lines()
		return len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "c)")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, Paused, c.State())

	commands <- Interrupt
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Ctrl-C")
	}
}

func TestController_InterruptWhileSensorUnavailable(t *testing.T) {
	c, _, src := newDeadController(t)

	commands := make(chan byte)
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), commands) }()

	commands <- 'r'
	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	commands <- Interrupt
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Ctrl-C")
	}
}
