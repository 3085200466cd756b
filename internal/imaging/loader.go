package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedFormat is returned for content that is not a known image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Info describes an encoded image without decoding its pixels.
type Info struct {
	// Format is the sniffed format: "png" or "jpeg".
	Format string `json:"format"`

	// MIME is the sniffed media type, e.g. "image/png".
	MIME string `json:"mime"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Gray reports a single-channel color model.
	Gray bool `json:"gray"`
}

var formatsByMIME = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
}

// Inspect sniffs the format of data and reads its dimensions from the header.
//
// Returns ErrUnsupportedFormat when the content is not PNG or JPEG, and a
// decode error when the header is truncated or corrupt.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("%w: empty input", ErrUnsupportedFormat)
	}

	mt := mimetype.Detect(data)
	format := ""
	for m := mt; m != nil; m = m.Parent() {
		if f, ok := formatsByMIME[m.String()]; ok {
			format = f
			break
		}
	}
	if format == "" {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("failed to read %s header: %w", format, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("invalid %s dimensions %dx%d", format, cfg.Width, cfg.Height)
	}

	return Info{
		Format: format,
		MIME:   mt.String(),
		Width:  cfg.Width,
		Height: cfg.Height,
		Gray:   isGrayModel(cfg),
	}, nil
}

// Decode decodes an encoded PNG or JPEG image.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func isGrayModel(cfg image.Config) bool {
	return cfg.ColorModel == color.GrayModel || cfg.ColorModel == color.Gray16Model
}
