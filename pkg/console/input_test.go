package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadCommands(t *testing.T) {
	ch := ReadCommands(context.Background(), strings.NewReader("rjx"))

	var got []byte
	for b := range ch {
		got = append(got, b)
	}
	assert.Equal(t, []byte("rjx"), got)
}

func TestLineWriter(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)
	assert.NoError(t, sink.WriteLine("1.23,6.79"))
	assert.NoError(t, sink.WriteLine(""))
	assert.Equal(t, "1.23,6.79\r\n\r\n", buf.String())
}
