package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/imaging"
	"github.com/ironsheep/searchpdf-mcp/internal/lang"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

// DefaultFallback is loaded when the requested languages are unavailable.
const DefaultFallback = "eng"

// InitError reports that neither the requested languages nor the fallback
// could be loaded.
type InitError struct {
	Primary  string
	Fallback string
	Errs     []error
}

func (e *InitError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	tried := e.Primary
	if e.Fallback != "" {
		tried += ", " + e.Fallback
	}
	return fmt.Sprintf("recognition engine init failed (tried %s): %s", tried, strings.Join(msgs, "; "))
}

func (e *InitError) Unwrap() []error { return e.Errs }

// Options configures a Session.
type Options struct {
	// Fallback is tried when the requested languages fail to load. Empty
	// means DefaultFallback.
	Fallback string
	// Preprocess is applied to the image handed to the recognizer only.
	Preprocess imaging.PreprocessOptions
	Logger     *zap.Logger
}

// Session is an initialized recognizer owned by one conversion job.
type Session struct {
	backend    string
	language   string
	rec        Recognizer
	preprocess imaging.PreprocessOptions
	logger     *zap.Logger
	closed     bool
	closeErr   error
}

// Open initializes a recognizer for spec, falling back to opts.Fallback when
// spec cannot be loaded. When both fail it returns an *InitError and nothing
// needs closing.
func Open(ctx context.Context, backend Backend, spec lang.Spec, opts Options) (*Session, error) {
	if opts.Fallback == "" {
		opts.Fallback = DefaultFallback
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	primary := spec.String()
	if primary == "" {
		primary = lang.Default
	}

	rec, err := backend.Init(ctx, primary)
	if err == nil {
		return newSession(backend, primary, rec, opts), nil
	}
	initErr := &InitError{Primary: primary, Errs: []error{err}}
	if ctx.Err() != nil || opts.Fallback == primary {
		return nil, initErr
	}

	opts.Logger.Warn("requested languages unavailable, trying fallback",
		zap.String("backend", backend.Name()),
		zap.String("lang", primary),
		zap.String("fallback", opts.Fallback),
		zap.Error(err))

	initErr.Fallback = opts.Fallback
	rec, err = backend.Init(ctx, opts.Fallback)
	if err != nil {
		initErr.Errs = append(initErr.Errs, err)
		return nil, initErr
	}
	return newSession(backend, opts.Fallback, rec, opts), nil
}

func newSession(backend Backend, language string, rec Recognizer, opts Options) *Session {
	opts.Logger.Info("recognition engine ready",
		zap.String("backend", backend.Name()),
		zap.String("lang", language))
	return &Session{
		backend:    backend.Name(),
		language:   language,
		rec:        rec,
		preprocess: opts.Preprocess,
		logger:     opts.Logger,
	}
}

// Language returns the language token actually loaded.
func (s *Session) Language() string { return s.language }

// Backend returns the name of the backend in use.
func (s *Session) Backend() string { return s.backend }

// Recognize returns the words found on img.
func (s *Session) Recognize(ctx context.Context, img raster.PageImage) ([]Word, error) {
	if s.closed {
		return nil, ErrTerminated
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.preprocess.Enabled() {
		data, err := imaging.PreprocessBytes(img.Data, s.preprocess)
		if err != nil {
			return nil, fmt.Errorf("preprocess page %d: %w", img.Index, err)
		}
		img.Data = data
		img.Format = raster.FormatPNG
	}

	words, err := s.rec.Recognize(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("recognize page %d: %w", img.Index, err)
	}
	kept := clean(words)
	if dropped := len(words) - len(kept); dropped > 0 {
		s.logger.Debug("dropped noise words", zap.Int("page", img.Index), zap.Int("count", dropped))
	}
	return kept, nil
}

// Close terminates the recognizer. Only the first call does work.
func (s *Session) Close() error {
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	if err := s.rec.Close(); err != nil {
		s.closeErr = fmt.Errorf("close recognizer: %w", err)
	}
	return s.closeErr
}

// IsInitError reports whether err is a recognition engine init failure.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}
