package companion

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/tensile/pkg/units"
)

func TestSession(t *testing.T) {
	s := NewSession(units.MustParse("kN"))
	assert.Equal(t, 0.0, s.Peak())
	_, ok := s.Last()
	assert.False(t, ok)

	s.Add(Record{0, 1, 1})
	s.Add(Record{0.5, 3, 3})
	s.Add(Record{1, 2, 3})

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3.0, s.Peak())

	records := s.Records()
	records[0].Current = 100
	assert.Equal(t, 1.0, s.Records()[0].Current, "Records returns a copy")

	s.Clear()
	assert.Zero(t, s.Len())
}

func TestSession_Consume(t *testing.T) {
	s := NewSession(units.MustParse("kN"))
	ch := make(chan Record, 3)
	ch <- Record{Timestamp: 1}
	ch <- Record{Timestamp: 2}
	close(ch)

	s.Consume(context.Background(), ch)
	assert.Equal(t, 2, s.Len())
}

func TestSession_Save(t *testing.T) {
	dir := t.TempDir()
	s := NewSession(units.MustParse("kN"))
	s.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local) }
	s.Clear()

	_, err := s.Save(dir, "")
	assert.True(t, errors.Is(err, ErrNoData))

	s.Add(Record{0, 1.2344, 1.2344})
	s.Add(Record{0.5, 2, 2})

	path, err := s.Save(dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test_20240305_140709.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "timestamp_s,current_kN,peak_kN\n0.000,1.234,1.234\n0.500,2.000,2.000\n", string(data))
}

func TestWriteCSV_Unit(t *testing.T) {
	tests := []struct {
		unit   string
		header string
	}{
		{"kN", "timestamp_s,current_kN,peak_kN"},
		{"kg", "timestamp_s,current_kg,peak_kg"},
		{"", "timestamp_s,current,peak"},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			var buf bytes.Buffer
			in := []Record{{0, 1, 1}, {0.5, 2.5, 2.5}}
			require.NoError(t, WriteCSV(&buf, in, units.MustParse(tt.unit)))
			assert.Equal(t, tt.header+"\n0.000,1.000,1.000\n0.500,2.500,2.500\n", buf.String())

			out, err := ReadCSV(&buf)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}
