package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestParse(t *testing.T) {
	tests := []struct {
		symbol   string
		wantKind Kind
		wantErr  bool
	}{
		{"", None, false},
		{"N", Force, false},
		{"kN", Force, false},
		{" kN ", Force, false},
		{"lbf", Force, false},
		{"g", Mass, false},
		{"kg", Mass, false},
		{"KN", None, true},
		{"furlong", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			u, err := Parse(tt.symbol)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, u.Kind)
		})
	}
}

func TestUnit_Force(t *testing.T) {
	u := MustParse("kN")

	f, ok := u.Force(1.5)
	require.True(t, ok)
	assert.Equal(t, 1500*physic.Newton, f)

	_, ok = u.Mass(1.5)
	assert.False(t, ok)
}

func TestUnit_Mass(t *testing.T) {
	u := MustParse("kg")

	m, ok := u.Mass(2)
	require.True(t, ok)
	assert.Equal(t, 2000*physic.Gram, m)
}

func TestUnit_Convert(t *testing.T) {
	tests := []struct {
		from, to string
		v, want  float64
		wantErr  bool
	}{
		{"kN", "kN", 12.5, 12.5, false},
		{"kN", "N", 1.5, 1500, false},
		{"N", "kN", 250, 0.25, false},
		{"kN", "lbf", 1, 224.809, false},
		{"g", "kg", 1500, 1.5, false},
		{"", "", 3, 3, false},
		{"kN", "kg", 1, 0, true},
		{"", "N", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			got, err := MustParse(tt.from).Convert(tt.v, MustParse(tt.to))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-3)
		})
	}
}

func TestUnit_Format(t *testing.T) {
	assert.Equal(t, "12.35 kN", MustParse("kN").Format(12.345678))
	assert.Equal(t, "0.50", MustParse("").Format(0.5))
}
