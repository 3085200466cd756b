package ocr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/procexec"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

// Backend names accepted by NewBackend.
const (
	BackendAuto      = "auto"
	BackendGosseract = "gosseract"
	BackendCLI       = "cli"
)

// DefaultPageSegMode is Tesseract's fully automatic page segmentation.
const DefaultPageSegMode = 3

var (
	// ErrBackendUnavailable is returned when a backend is not compiled in.
	ErrBackendUnavailable = errors.New("recognition backend unavailable")

	// ErrTerminated is returned by Recognize after the session was closed.
	ErrTerminated = errors.New("recognition session closed")
)

// BoundingBox is a rectangle in image pixels, origin at the top-left corner.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Valid reports whether the box has finite coordinates and a positive area.
func (b BoundingBox) Valid() bool {
	for _, v := range [...]float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X1 > b.X0 && b.Y1 > b.Y0
}

// Word is one recognized word.
type Word struct {
	Text string `json:"text"`

	// Confidence is in the range 0..1.
	Confidence float64 `json:"confidence"`

	Box BoundingBox `json:"box"`
}

// Recognizer runs recognition with one loaded language set.
type Recognizer interface {
	Recognize(ctx context.Context, img raster.PageImage) ([]Word, error)
	Close() error
}

// Backend creates initialized recognizers. Init must release anything it
// allocated when it fails.
type Backend interface {
	Name() string
	Init(ctx context.Context, language string) (Recognizer, error)
}

// BackendOptions configures the built-in backends.
type BackendOptions struct {
	// Invoker runs the tesseract executable (cli backend).
	Invoker procexec.Invoker
	// Tool is the tesseract executable (cli backend).
	Tool string
	// TessdataPrefix overrides the traineddata directory.
	TessdataPrefix string
	// PageSegMode is Tesseract's --psm value. Zero means DefaultPageSegMode.
	PageSegMode int
	// Timeout bounds each tesseract run (cli backend).
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewBackend returns the backend called name.
func NewBackend(name string, opts BackendOptions) (Backend, error) {
	if opts.PageSegMode == 0 {
		opts.PageSegMode = DefaultPageSegMode
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	switch strings.ToLower(name) {
	case "", BackendAuto:
		if GosseractCompiled {
			return NewGosseractBackend(opts), nil
		}
		return NewCLIBackend(opts), nil
	case BackendGosseract:
		if !GosseractCompiled {
			return nil, fmt.Errorf("%w: %s requires a cgo build", ErrBackendUnavailable, BackendGosseract)
		}
		return NewGosseractBackend(opts), nil
	case BackendCLI:
		return NewCLIBackend(opts), nil
	default:
		return nil, fmt.Errorf("unknown recognition backend %q", name)
	}
}

// clean drops noise words and normalizes the rest.
func clean(words []Word) []Word {
	out := words[:0]
	for _, w := range words {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" || !w.Box.Valid() {
			continue
		}
		if math.IsNaN(w.Confidence) {
			w.Confidence = 0
		}
		w.Confidence = math.Max(0, math.Min(1, w.Confidence))
		out = append(out, w)
	}
	return out
}
