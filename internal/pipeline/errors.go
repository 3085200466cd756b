package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ironsheep/searchpdf-mcp/internal/assembler"
	"github.com/ironsheep/searchpdf-mcp/internal/ocr"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

var (
	// ErrNoOCRRoute is returned when neither the bundler nor the rasterizer
	// is installed.
	ErrNoOCRRoute = errors.New("no OCR route available")

	// ErrInvalidInput is returned for unusable documents or language lists.
	ErrInvalidInput = errors.New("invalid input")
)

// BundlerError reports a bundler run that exited unsuccessfully or produced
// no document. Stderr holds the tail of its diagnostic output.
type BundlerError struct {
	ExitStatus int
	// NoOutput is set when the bundler exited cleanly without writing a PDF.
	NoOutput   bool
	Stderr     string
}

func (e *BundlerError) Error() string {
	msg := fmt.Sprintf("bundler failed with exit status %d", e.ExitStatus)
	if e.NoOutput {
		msg = "bundler exited without writing a PDF to stdout"
	}
	if e.Stderr == "" {
		return msg
	}
	return msg + ": " + e.Stderr
}

// BundlerTimeoutError reports a bundler run killed by its deadline.
type BundlerTimeoutError struct {
	Timeout time.Duration
}

func (e *BundlerTimeoutError) Error() string {
	return fmt.Sprintf("bundler timed out after %s", e.Timeout)
}

// Error kinds reported by Kind.
const (
	KindNoOCRRoute           = "NoOcrRouteAvailable"
	KindRasterizationFailed  = "RasterizationFailed"
	KindRasterizationTimeout = "RasterizationTimeout"
	KindEngineInitFailed     = "RecognitionEngineInitFailed"
	KindBundlerFailed        = "BundlerToolFailed"
	KindBundlerTimeout       = "BundlerToolTimeout"
	KindAssemblyFailed       = "AssemblyFailed"
	KindInvalidInput         = "InvalidInput"
	KindCancelled            = "Cancelled"
	KindInternal             = "Internal"
)

// Kind names the failure category of err for callers that map errors onto
// their own taxonomy. It returns "" for a nil error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoOCRRoute):
		return KindNoOCRRoute
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errAs[*raster.TimeoutError](err):
		return KindRasterizationTimeout
	case errAs[*raster.FailedError](err):
		return KindRasterizationFailed
	case ocr.IsInitError(err):
		return KindEngineInitFailed
	case errAs[*BundlerTimeoutError](err):
		return KindBundlerTimeout
	case errAs[*BundlerError](err):
		return KindBundlerFailed
	case errAs[*assembler.Error](err):
		return KindAssemblyFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}

// errAs is errors.As for a pointer-to-struct error type.
func errAs[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
