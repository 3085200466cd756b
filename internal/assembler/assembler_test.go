package assembler

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/searchpdf-mcp/internal/imaging"
	"github.com/ironsheep/searchpdf-mcp/internal/ocr"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

func init() {
	model.ConfigPath = "disable"
}

func page(t *testing.T, index int, format raster.Format, w, h int) raster.PageImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.Black)

	var buf bytes.Buffer
	if format == raster.FormatJPEG {
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	} else {
		require.NoError(t, png.Encode(&buf, img))
	}
	return raster.PageImage{Index: index, Format: format, Width: w, Height: h, Data: buf.Bytes()}
}

func TestPlace(t *testing.T) {
	tests := []struct {
		name string
		box  ocr.BoundingBox
		h    float64
		want Placement
	}{
		{"reference", ocr.BoundingBox{X0: 10, Y0: 20, X1: 50, Y1: 40}, 100, Placement{X: 10, Y: 60, Size: 20}},
		{"clamped small", ocr.BoundingBox{X0: 0, Y0: 0, X1: 5, Y1: 2}, 100, Placement{X: 0, Y: 98, Size: 6}},
		{"clamped large", ocr.BoundingBox{X0: 3, Y0: 10, X1: 500, Y1: 110}, 1000, Placement{X: 3, Y: 890, Size: 36}},
		{"height floor", ocr.BoundingBox{X0: 7, Y0: 50, X1: 9, Y1: 50.5}, 100, Placement{X: 7, Y: 49, Size: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Place(tt.box, tt.h, DefaultMinSize, DefaultMaxSize))
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeVisible, m)

	m, err = ParseMode(" Hidden ")
	require.NoError(t, err)
	assert.Equal(t, ModeHidden, m)

	_, err = ParseMode("transparent")
	assert.Error(t, err)
}

func TestAssembler_PagesAndDims(t *testing.T) {
	a := New(Options{Compress: true, Title: "scan"})
	words := []ocr.Word{{Text: "Olá", Box: ocr.BoundingBox{X0: 10, Y0: 20, X1: 50, Y1: 40}}}

	require.NoError(t, a.AddPage(page(t, 1, raster.FormatPNG, 200, 100), words))
	require.NoError(t, a.AddPage(page(t, 2, raster.FormatJPEG, 80, 120), nil))
	assert.Equal(t, 2, a.Pages())

	out, err := a.Bytes()
	require.NoError(t, err)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	dims, err := api.PageDims(bytes.NewReader(out), conf)
	require.NoError(t, err)
	require.Len(t, dims, 2)
	assert.InDelta(t, 200, dims[0].Width, 0.001)
	assert.InDelta(t, 100, dims[0].Height, 0.001)
	assert.InDelta(t, 80, dims[1].Width, 0.001)
	assert.InDelta(t, 120, dims[1].Height, 0.001)
}

func TestAssembler_Modes(t *testing.T) {
	words := []ocr.Word{{Text: "hello", Box: ocr.BoundingBox{X0: 10, Y0: 20, X1: 50, Y1: 40}}}

	red, err := imaging.ParseColor("#ff0000")
	require.NoError(t, err)
	visible := New(Options{Color: red})
	require.NoError(t, visible.AddPage(page(t, 1, raster.FormatPNG, 100, 100), words))
	out, err := visible.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "1 0 0 rg")
	assert.Contains(t, string(out), "/F1 20 Tf")
	assert.Contains(t, string(out), "1 0 0 1 10 60 Tm")
	assert.Contains(t, string(out), "(hello) Tj")
	assert.NotContains(t, string(out), "3 Tr")

	hidden := New(Options{Mode: ModeHidden})
	require.NoError(t, hidden.AddPage(page(t, 1, raster.FormatPNG, 100, 100), words))
	out, err = hidden.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "3 Tr")
	assert.Contains(t, string(out), "(hello) Tj")
}

func TestAssembler_Errors(t *testing.T) {
	_, err := New(Options{}).Bytes()
	var ae *Error
	require.ErrorAs(t, err, &ae)

	a := New(Options{})
	err = a.AddPage(raster.PageImage{Index: 3, Width: 10, Height: 10, Data: []byte("junk")}, nil)
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 3, ae.Page)

	err = a.AddPage(raster.PageImage{Index: 4, Data: []byte("junk")}, nil)
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 4, ae.Page)
	assert.Equal(t, 0, a.Pages())
}
