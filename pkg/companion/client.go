package companion

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/itohio/tensile/pkg/loadcell"
)

const csvNotice = "Output format changed to: CSV"

// Commander controls a connected device.
type Commander interface {
	IsConnected() bool
	Paused() bool
	Pause() error
	Resume() error
	StartNewTest(ctx context.Context) error
}

var _ Commander = (*Client)(nil)

// Client talks to a tensile tester over a serial port.
type Client struct {
	port         string
	baudRate     int
	startupWait  time.Duration
	commandDelay time.Duration
	open         func(name string, baudRate int) (io.ReadWriteCloser, error)
	onLine       func(string)
	log          *logrus.Entry

	mu        sync.Mutex
	conn      io.ReadWriteCloser
	records   chan Record
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
	paused    bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDelays sets the wait after opening the port and the gap after each command.
func WithDelays(startupWait, commandDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.startupWait = startupWait
		c.commandDelay = commandDelay
	}
}

// WithLineHandler registers a callback for every non-empty line received.
func WithLineHandler(fn func(string)) ClientOption {
	return func(c *Client) {
		c.onLine = fn
	}
}

// WithOpener replaces the serial port opener.
func WithOpener(open func(name string, baudRate int) (io.ReadWriteCloser, error)) ClientOption {
	return func(c *Client) {
		c.open = open
	}
}

// NewClient creates a disconnected client.
func NewClient(port string, baudRate int, opts ...ClientOption) *Client {
	if baudRate == 0 {
		baudRate = loadcell.DefaultBaudRate
	}
	c := &Client{
		port:         port,
		baudRate:     baudRate,
		startupWait:  3 * time.Second,
		commandDelay: 300 * time.Millisecond,
		open: func(name string, baudRate int) (io.ReadWriteCloser, error) {
			return serial.Open(name, &serial.Mode{BaudRate: baudRate})
		},
		log:    logrus.WithField("component", "client").WithField("port", port),
		paused: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the port, waits for the device to finish its startup output,
// switches it to structured output and starts streaming records. The device is
// left paused.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return loadcell.ErrAlreadyConnected
	}

	conn, err := c.open(c.port, c.baudRate)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", c.port)
	}

	if err := sleep(ctx, c.startupWait); err != nil {
		conn.Close()
		return err
	}
	resetInput(conn)

	if _, err := conn.Write([]byte{'j'}); err != nil {
		conn.Close()
		return errors.Wrap(err, "failed to switch output format")
	}
	if err := sleep(ctx, c.commandDelay); err != nil {
		conn.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.records = make(chan Record, 256)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.connected = true
	c.paused = true

	go c.readLoop(loopCtx, conn, c.records, c.done)

	c.log.WithField("baud", c.baudRate).Info("connected")
	return nil
}

// resetInput drops whatever the device printed before we were ready.
func resetInput(conn io.ReadWriteCloser) {
	if p, ok := conn.(interface{ ResetInputBuffer() error }); ok {
		_ = p.ResetInputBuffer()
	}
}

// Records returns the record stream. It is closed on disconnect.
func (c *Client) Records() <-chan Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records
}

// Disconnect stops streaming and closes the port.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.cancel()
	err := c.conn.Close()
	done := c.done
	c.mu.Unlock()

	<-done
	c.log.Info("disconnected")
	return err
}

// IsConnected reports whether the port is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Paused reports the last known device state.
func (c *Client) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Pause stops measurements if the device is running.
func (c *Client) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return nil
	}
	if err := c.send('x'); err != nil {
		return err
	}
	c.paused = true
	return nil
}

// Resume continues measurements if the device is paused.
func (c *Client) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return nil
	}
	if err := c.send('r'); err != nil {
		return err
	}
	c.paused = false
	return nil
}

// StartNewTest resets peak and timestamp on the device and starts measuring.
// A running device is paused first.
func (c *Client) StartNewTest(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.paused {
		if err := c.send('x'); err != nil {
			return err
		}
		c.paused = true
		if err := sleep(ctx, c.commandDelay); err != nil {
			return err
		}
	}

	if err := c.send('x'); err != nil {
		return err
	}
	c.paused = false
	return nil
}

func (c *Client) send(cmd byte) error {
	if !c.connected {
		return loadcell.ErrNotConnected
	}
	if _, err := c.conn.Write([]byte{cmd}); err != nil {
		return errors.Wrapf(err, "failed to send %q", cmd)
	}
	c.log.WithField("command", string(cmd)).Debug("sent")
	return nil
}

func (c *Client) readLoop(ctx context.Context, r io.Reader, out chan<- Record, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if c.onLine != nil {
			c.onLine(line)
		}

		if line == csvNotice {
			c.log.Debug("device switched to CSV, toggling back")
			c.mu.Lock()
			_ = c.send('j')
			c.mu.Unlock()
			continue
		}

		rec, err := ParseRecord(line)
		if err != nil {
			if strings.HasPrefix(line, "{") {
				c.log.WithError(err).WithField("line", line).Debug("skipping malformed record")
			}
			continue
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.log.WithError(err).Error("connection lost")
	}

	c.mu.Lock()
	if c.connected && ctx.Err() == nil {
		c.connected = false
		c.cancel()
		_ = c.conn.Close()
	}
	c.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
