package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// PreprocessOptions selects the adjustments applied before recognition.
// The zero value applies nothing.
type PreprocessOptions struct {
	// Grayscale drops color information.
	Grayscale bool `yaml:"grayscale" json:"grayscale"`

	// Contrast adjusts contrast by a percentage in the range -100..100.
	Contrast float64 `yaml:"contrast" json:"contrast"`

	// Threshold binarizes the image at the given level (1..255). Zero
	// disables binarization.
	Threshold int `yaml:"threshold" json:"threshold"`
}

// Enabled reports whether any adjustment is selected.
func (o PreprocessOptions) Enabled() bool {
	return o.Grayscale || o.Contrast != 0 || o.Threshold > 0
}

// Preprocess applies the selected adjustments. The result always has the
// same bounds size as img.
func Preprocess(img image.Image, opts PreprocessOptions) image.Image {
	out := img
	if opts.Grayscale {
		out = imaging.Grayscale(out)
	}
	if opts.Contrast != 0 {
		out = imaging.AdjustContrast(out, clampFloat(opts.Contrast, -100, 100))
	}
	if opts.Threshold > 0 {
		out = segment.Threshold(out, uint8(clampInt(opts.Threshold, 1, 255)))
	}
	return out
}

// PreprocessBytes decodes data, applies opts and re-encodes as PNG. When no
// adjustment is selected data is returned unchanged.
func PreprocessBytes(data []byte, opts PreprocessOptions) ([]byte, error) {
	if !opts.Enabled() {
		return data, nil
	}
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(Preprocess(img, opts))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
