package reading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"csv", CSV, false},
		{"", CSV, false},
		{"CSV", CSV, false},
		{"json", Structured, false},
		{" Structured ", Structured, false},
		{"xml", CSV, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMode_Toggle(t *testing.T) {
	assert.Equal(t, Structured, CSV.Toggle())
	assert.Equal(t, CSV, Structured.Toggle())
	assert.Equal(t, CSV, CSV.Toggle().Toggle())
	assert.Equal(t, "CSV", CSV.String())
	assert.Equal(t, "JSON", Structured.String())
}
