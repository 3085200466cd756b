//go:build cgo

package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/imaging"
	"github.com/ironsheep/searchpdf-mcp/internal/lang"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

// GosseractCompiled reports whether the in-process backend is available.
const GosseractCompiled = true

// GosseractBackend recognizes in-process through libtesseract.
type GosseractBackend struct {
	tessdataPrefix string
	pageSegMode    int
	logger         *zap.Logger
}

// NewGosseractBackend creates the in-process backend.
func NewGosseractBackend(opts BackendOptions) *GosseractBackend {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PageSegMode == 0 {
		opts.PageSegMode = DefaultPageSegMode
	}
	return &GosseractBackend{
		tessdataPrefix: opts.TessdataPrefix,
		pageSegMode:    opts.PageSegMode,
		logger:         opts.Logger,
	}
}

// Name implements Backend.
func (b *GosseractBackend) Name() string { return BackendGosseract }

// Init implements Backend. gosseract loads language data lazily, so a blank
// warm-up image is recognized to surface a missing traineddata file here
// rather than on the first page.
func (b *GosseractBackend) Init(ctx context.Context, language string) (Recognizer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	fail := func(step string, err error) (Recognizer, error) {
		client.Close()
		return nil, fmt.Errorf("gosseract %s (%s): %w", step, language, err)
	}

	if b.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(b.tessdataPrefix); err != nil {
			return fail("set tessdata prefix", err)
		}
	}
	if err := client.SetLanguage(lang.Spec(language).Codes()...); err != nil {
		return fail("set language", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(b.pageSegMode)); err != nil {
		return fail("set page segmentation mode", err)
	}

	warmup, err := imaging.EncodePNG(image.NewGray(image.Rect(0, 0, 32, 32)))
	if err != nil {
		return fail("encode warm-up image", err)
	}
	if err := client.SetImageFromBytes(warmup); err != nil {
		return fail("load warm-up image", err)
	}
	if _, err := client.Text(); err != nil {
		return fail("initialize", err)
	}

	b.logger.Debug("gosseract client initialized",
		zap.String("lang", language),
		zap.String("tesseract", gosseract.Version()))
	return &gosseractRecognizer{client: client}, nil
}

type gosseractRecognizer struct {
	client *gosseract.Client
}

func (r *gosseractRecognizer) Recognize(ctx context.Context, img raster.PageImage) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.client.SetImageFromBytes(img.Data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		words = append(words, Word{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Box: BoundingBox{
				X0: float64(box.Box.Min.X),
				Y0: float64(box.Box.Min.Y),
				X1: float64(box.Box.Max.X),
				Y1: float64(box.Box.Max.Y),
			},
		})
	}
	return words, nil
}

func (r *gosseractRecognizer) Close() error {
	return r.client.Close()
}
