package loadcell

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the bridge MCU baud rate.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
	// DefaultReadTimeout bounds the wait for a single raw sample. HX711 runs at 10 or 80 SPS.
	DefaultReadTimeout = time.Second
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads raw HX711 counts streamed by a bridge MCU over a serial port.
//
// Each line is either "unix_micros,raw" or a bare "raw" count.
type Serial struct {
	port        string
	baudRate    int
	bufSize     int
	readTimeout time.Duration
	log         *logrus.Entry

	conn      io.ReadWriteCloser
	open      func(name string, baudRate int) (io.ReadWriteCloser, error)
	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	lost      bool
}

// New creates a new Serial source with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:        port,
		baudRate:    baudRate,
		bufSize:     bufSize,
		readTimeout: DefaultReadTimeout,
		log:         logrus.WithField("source", "serial").WithField("port", port),
		open:        openPort,
	}
}

// SetReadTimeout sets the maximum wait for one raw sample.
func (d *Serial) SetReadTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.readTimeout = timeout
	}
}

func openPort(name string, baudRate int) (io.ReadWriteCloser, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baudRate})
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list serial ports")
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}

	conn, err := d.open(d.port, d.baudRate)
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %s", d.port)
	}
	d.start(conn)

	d.log.WithField("baud", d.baudRate).Info("connected")
	return nil
}

// start begins streaming from conn. Must be called with mu held.
func (d *Serial) start(conn io.ReadWriteCloser) {
	d.conn = conn
	d.samples = make(chan RawSample, d.bufSize)
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.connected = true
	d.lost = false

	go d.readSamples(d.ctx, conn, d.samples)
}

// reconnect reopens the port after the bridge stream ended unexpectedly.
func (d *Serial) reconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected || !d.lost {
		return nil
	}

	conn, err := d.open(d.port, d.baudRate)
	if err != nil {
		return errors.Wrapf(ErrSensorUnavailable, "reopen %s: %v", d.port, err)
	}

	d.cancel()
	if d.conn != nil {
		_ = d.conn.Close()
	}
	d.start(conn)

	d.log.Info("reconnected")
	return nil
}

// Close closes the connection and stops reading samples.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.log.WithError(err).Warn("error closing serial port")
		}
		d.conn = nil
	}

	d.connected = false
	return nil
}

// IsConnected returns whether the source is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// ReadRaw averages the next n raw samples. It blocks until they arrive. A
// stream that ended is reopened first.
func (d *Serial) ReadRaw(ctx context.Context, n int) (int64, error) {
	d.mu.RLock()
	connected, lost := d.connected, d.lost
	d.mu.RUnlock()

	if !connected {
		return 0, ErrNotConnected
	}
	if lost {
		if err := d.reconnect(); err != nil {
			return 0, err
		}
	}

	d.mu.RLock()
	samples := d.samples
	d.mu.RUnlock()

	return readAverage(ctx, samples, n, d.readTimeout)
}

// readSamples reads lines from the serial port and parses them into RawSample.
// It closes out when the stream ends.
func (d *Serial) readSamples(ctx context.Context, r io.Reader, out chan<- RawSample) {
	defer close(out)
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Errorf("panic in readSamples: %v", rec)
		}
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sample, err := parseLine(line, time.Now())
		if err != nil {
			d.log.WithError(err).Debugf("skipping line %q", line)
			continue
		}

		select {
		case out <- sample:
		case <-ctx.Done():
			return
		default:
			// Nobody is reading; the oldest data is stale anyway
			d.log.Trace("samples channel full, dropping sample")
		}
	}

	if ctx.Err() != nil {
		return
	}
	if err := scanner.Err(); err != nil {
		d.log.WithError(err).Error("error reading from serial port")
	}

	d.mu.Lock()
	if d.ctx == ctx {
		d.lost = true
	}
	d.mu.Unlock()
}

// parseLine parses a line from the bridge into a RawSample.
// Format: [unix_micros,]raw
// Example: 1234567890123,-81470
func parseLine(line string, now time.Time) (RawSample, error) {
	parts := strings.Split(line, ",")

	var timestamp time.Time
	switch len(parts) {
	case 1:
		timestamp = now
	case 2:
		micros, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return RawSample{}, errors.Wrap(err, "invalid timestamp")
		}
		timestamp = time.UnixMicro(micros)
	default:
		return RawSample{}, errors.Errorf("invalid line format: expected 1 or 2 comma-separated values, got %d", len(parts))
	}

	raw, err := strconv.ParseInt(strings.TrimSpace(parts[len(parts)-1]), 10, 32)
	if err != nil {
		return RawSample{}, errors.Wrap(err, "invalid reading")
	}
	if raw < minCount || raw > maxCount {
		return RawSample{}, errors.Errorf("reading out of range: %d", raw)
	}

	return RawSample{
		Timestamp: timestamp,
		Value:     raw,
	}, nil
}

// HX711 output is 24-bit two's complement.
const (
	minCount = -(1 << 23)
	maxCount = 1<<23 - 1
)
