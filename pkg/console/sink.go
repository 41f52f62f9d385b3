package console

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Sink receives complete output lines.
type Sink interface {
	WriteLine(text string) error
}

// LineWriter is a Sink that terminates every line with CRLF.
type LineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink returns a Sink writing to w.
func NewSink(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// WriteLine implements Sink.
func (l *LineWriter) WriteLine(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := io.WriteString(l.w, text+"\r\n"); err != nil {
		return errors.Wrap(err, "failed to write line")
	}
	return nil
}
