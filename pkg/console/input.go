package console

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// Interrupt is Ctrl-C as it arrives from a terminal in raw mode.
const Interrupt byte = 0x03

// ReadCommands streams single-byte commands from r. The channel is closed when r
// returns an error or ctx is done. A Read blocked on r is not interrupted by ctx.
func ReadCommands(ctx context.Context, r io.Reader) <-chan byte {
	out := make(chan byte, 16)
	log := logrus.WithField("component", "input")

	go func() {
		defer close(out)

		buf := make([]byte, 64)
		for {
			n, err := r.Read(buf)
			for _, b := range buf[:n] {
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					log.WithError(err).Warn("command input closed")
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return out
}
