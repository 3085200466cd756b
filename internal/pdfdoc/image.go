package pdfdoc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/klauspost/compress/zlib"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Image is an image XObject added to a document.
type Image struct {
	ref    types.IndirectRef
	Width  int
	Height int
}

// AddImage embeds an encoded PNG or JPEG image.
//
// Baseline gray and YCbCr JPEGs are embedded unchanged with DCTDecode. Every
// other image is decoded and stored as Flate-compressed 8-bit gray or RGB
// samples; transparency is composited onto white.
func (d *Document) AddImage(data []byte) (Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Image{}, fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}

	dict := types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(cfg.Width),
		"Height":           types.Integer(cfg.Height),
		"BitsPerComponent": types.Integer(8),
	}

	var stream []byte
	if space, ok := jpegColorSpace(format, cfg.ColorModel); ok {
		dict["ColorSpace"] = types.Name(space)
		dict["Filter"] = types.Name("DCTDecode")
		stream = data
	} else {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return Image{}, fmt.Errorf("decode %s image: %w", format, err)
		}
		samples, space := rawSamples(img)
		z, err := deflate(samples)
		if err != nil {
			return Image{}, fmt.Errorf("compress image samples: %w", err)
		}
		dict["ColorSpace"] = types.Name(space)
		dict["Filter"] = types.Name("FlateDecode")
		stream = z
	}

	ref, err := d.addStream(dict, stream)
	if err != nil {
		return Image{}, fmt.Errorf("add image: %w", err)
	}
	return Image{ref: ref, Width: cfg.Width, Height: cfg.Height}, nil
}

func jpegColorSpace(format string, model color.Model) (string, bool) {
	if format != "jpeg" {
		return "", false
	}
	switch model {
	case color.GrayModel:
		return "DeviceGray", true
	case color.YCbCrModel:
		return "DeviceRGB", true
	}
	return "", false
}

func rawSamples(img image.Image) ([]byte, string) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if g, ok := img.(*image.Gray); ok {
		out := make([]byte, 0, w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := g.Pix[(y-b.Min.Y)*g.Stride : (y-b.Min.Y)*g.Stride+w]
			out = append(out, row...)
		}
		return out, "DeviceGray"
	}

	out := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out = append(out, overWhite(c.R, c.A), overWhite(c.G, c.A), overWhite(c.B, c.A))
		}
	}
	return out, "DeviceRGB"
}

func overWhite(v, a uint8) uint8 {
	if a == 0xff {
		return v
	}
	return uint8((uint32(v)*uint32(a) + 255*(255-uint32(a)) + 127) / 255)
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
