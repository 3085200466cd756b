package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want RGBColor
	}{
		{"", Black},
		{"#000000", Black},
		{"#ff0000", RGBColor{R: 1}},
		{"00ff00", RGBColor{G: 1}},
		{"#00F", RGBColor{B: 1}},
		{" #ffffff ", RGBColor{R: 1, G: 1, B: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.R, got.R, 1e-9)
			assert.InDelta(t, tt.want.G, got.G, 1e-9)
			assert.InDelta(t, tt.want.B, got.B, 1e-9)
		})
	}
}

func TestParseColor_Invalid(t *testing.T) {
	for _, in := range []string{"red", "#12345", "#gggggg"} {
		_, err := ParseColor(in)
		assert.Error(t, err, in)
	}
}

func TestRGBColor_Hex(t *testing.T) {
	c, err := ParseColor("#336699")
	require.NoError(t, err)
	assert.Equal(t, "#336699", c.Hex())
	assert.Equal(t, "#000000", Black.Hex())
}
