package imaging

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBColor is a color with components in the range 0..1.
type RGBColor struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Black is the default overlay color.
var Black = RGBColor{}

// Hex renders the color as "#rrggbb".
func (c RGBColor) Hex() string {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex()
}

// ParseColor parses "#RRGGBB" or "#RGB". The leading '#' is optional and an
// empty string yields Black.
func ParseColor(s string) (RGBColor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Black, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return RGBColor{}, fmt.Errorf("invalid color %q: want #RGB or #RRGGBB", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGBColor{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return RGBColor{R: c.R, G: c.G, B: c.B}, nil
}
