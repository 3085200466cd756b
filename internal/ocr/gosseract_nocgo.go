//go:build !cgo

package ocr

import (
	"context"
	"fmt"
)

// GosseractCompiled reports whether the in-process backend is available.
const GosseractCompiled = false

// GosseractBackend is a placeholder in builds without cgo; Init always fails.
type GosseractBackend struct{}

// NewGosseractBackend returns the placeholder backend.
func NewGosseractBackend(BackendOptions) *GosseractBackend { return &GosseractBackend{} }

// Name implements Backend.
func (b *GosseractBackend) Name() string { return BackendGosseract }

// Init implements Backend.
func (b *GosseractBackend) Init(context.Context, string) (Recognizer, error) {
	return nil, fmt.Errorf("%w: built without cgo", ErrBackendUnavailable)
}
