package console

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// OpenStdio returns standard input and output for the console. When stdin is a
// terminal it is switched to raw mode so single keys arrive without Enter; the
// returned func restores it.
func OpenStdio() (io.Reader, io.Writer, func() error, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return os.Stdin, os.Stdout, func() error { return nil }, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to switch terminal to raw mode")
	}

	return os.Stdin, os.Stdout, func() error {
		return term.Restore(fd, state)
	}, nil
}

// OpenSerial opens a serial port used as both command input and text sink.
func OpenSerial(port string, baudRate int) (io.ReadWriteCloser, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open console port %s", port)
	}
	return p, nil
}
