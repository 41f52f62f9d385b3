package companion

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Record
		wantErr bool
	}{
		{"structured", `{"timestamp":2.000,"current":1.234,"peak":6.789}`, Record{2, 1.234, 6.789}, false},
		{"surrounding space", "  {\"timestamp\":0.500,\"current\":1,\"peak\":1}\r", Record{0.5, 1, 1}, false},
		{"missing fields", `{"current":3.5}`, Record{Current: 3.5}, false},
		{"csv", "1.23,6.79", Record{}, true},
		{"menu", "Measurement Paused. Peak: 6.79 kN", Record{}, true},
		{"sweep", "20\t0.00", Record{}, true},
		{"broken json", `{"timestamp":`, Record{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.line)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNotRecord), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
