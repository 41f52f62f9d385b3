package loadcell

import (
	"context"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/tensile/pkg/config"
)

// Mock simulates a load cell on a tensile bench for testing and development.
//
// Every Period the specimen is pulled: the raw count ramps from Zero at
// CountsPerSecond until BreakAfter, then the force collapses back to zero.
type Mock struct {
	cfg *config.MockConfig

	samples     chan RawSample
	readTimeout time.Duration
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	connected   bool
	startTime   time.Time
	now         func() time.Time
}

// NewMock creates a new mocked source.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	return &Mock{
		cfg:         cfg,
		readTimeout: DefaultReadTimeout,
		now:         time.Now,
	}
}

// Connect starts generating samples.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}

	m.connected = true
	m.startTime = m.now()
	m.samples = make(chan RawSample, DefaultBufferSize)
	m.ctx, m.cancel = context.WithCancel(context.Background())

	// readTimeout must cover at least one sample period
	if m.readTimeout < 2*m.cfg.SampleRate {
		m.readTimeout = 2 * m.cfg.SampleRate
	}

	go m.generateSamples(m.ctx, m.samples)

	return nil
}

// Close stops the mocked source.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false

	return nil
}

// IsConnected returns whether the source is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// ReadRaw averages the next n generated samples.
func (m *Mock) ReadRaw(ctx context.Context, n int) (int64, error) {
	m.mu.RLock()
	samples := m.samples
	connected := m.connected
	m.mu.RUnlock()

	if !connected {
		return 0, ErrNotConnected
	}

	return readAverage(ctx, samples, n, m.readTimeout)
}

// generateSamples emits one sample per SampleRate until ctx is done.
func (m *Mock) generateSamples(ctx context.Context, out chan<- RawSample) {
	defer close(out)

	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := m.now()
			sample := RawSample{
				Timestamp: now,
				Value:     m.countAt(now.Sub(m.startTime)),
			}
			select {
			case out <- sample:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// countAt returns the simulated raw count at elapsed time since Connect.
func (m *Mock) countAt(elapsed time.Duration) int64 {
	var phase time.Duration
	if m.cfg.Period > 0 {
		phase = elapsed % m.cfg.Period
	} else {
		phase = elapsed
	}

	load := m.load(phase)

	// Deterministic pseudo-noise
	t := float32(elapsed.Seconds())
	noise := (math32.Sin(t*7.3) + math32.Cos(t*3.1)) * 0.5 * float32(m.cfg.NoiseCounts)

	return m.cfg.Zero + int64(math32.Floor(load+noise+0.5))
}

// load is the noiseless load above zero, in counts, for a phase within one pull.
func (m *Mock) load(phase time.Duration) float32 {
	rate := float32(m.cfg.CountsPerSecond)
	breakAt := float32(m.cfg.BreakAfter.Seconds())
	t := float32(phase.Seconds())

	if t <= breakAt {
		return rate * t
	}

	// After the break the residual force decays within a fraction of a second
	return rate * breakAt * math32.Exp(-(t-breakAt)*20)
}
