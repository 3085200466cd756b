// Package pipeline converts image-only PDFs into searchable PDFs.
//
// A Converter picks one of two routes per call. When the bundler (ocrmypdf)
// is installed the whole job is delegated to it over stdin/stdout. Otherwise,
// if the rasterizer (pdftoppm) is installed, pages are rendered one by one,
// recognized in-process and reassembled with a text layer. With neither tool
// present Convert fails with ErrNoOCRRoute.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/assembler"
	"github.com/ironsheep/searchpdf-mcp/internal/config"
	"github.com/ironsheep/searchpdf-mcp/internal/imaging"
	"github.com/ironsheep/searchpdf-mcp/internal/lang"
	"github.com/ironsheep/searchpdf-mcp/internal/ocr"
	"github.com/ironsheep/searchpdf-mcp/internal/procexec"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

// Route is the strategy used for a conversion.
type Route string

const (
	RouteBundler Route = "bundler"
	RouteRaster  Route = "raster"
	RouteNone    Route = "none"
)

// Tool names used in capability reports.
const (
	ToolBundler    = "bundler"
	ToolRasterizer = "rasterizer"
	ToolTesseract  = "tesseract"
)

// Option customizes a Converter.
type Option func(*Converter)

// WithInvoker replaces the process invoker used for every external tool.
func WithInvoker(inv procexec.Invoker) Option {
	return func(c *Converter) { c.invoker = inv }
}

// WithProber replaces the capability prober.
func WithProber(p procexec.Prober) Option {
	return func(c *Converter) { c.prober = p }
}

// WithBackend replaces the recognition backend.
func WithBackend(b ocr.Backend) Option {
	return func(c *Converter) { c.backend = b }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// Converter runs conversions. It holds no per-job state and may be shared;
// every call gets its own workspace and recognition session.
type Converter struct {
	cfg      config.Config
	invoker  procexec.Invoker
	prober   procexec.Prober
	backend  ocr.Backend
	logger   *zap.Logger
	lang     lang.Spec
	fallback lang.Spec
	mode     assembler.Mode
	color    imaging.RGBColor
	bundler  procexec.Tool
	rasterer procexec.Tool
	tess     procexec.Tool
}

// New creates a Converter from cfg.
func New(cfg config.Config, opts ...Option) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Converter{
		cfg:      cfg,
		bundler:  procexec.Tool{Name: ToolBundler, Path: cfg.Tools.Bundler, VersionArgs: []string{"--version"}},
		rasterer: procexec.Tool{Name: ToolRasterizer, Path: cfg.Tools.Rasterizer, VersionArgs: []string{"-v"}},
		tess:     procexec.Tool{Name: ToolTesseract, Path: cfg.Tools.Tesseract, VersionArgs: []string{"--version"}},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.invoker == nil {
		c.invoker = procexec.NewExecInvoker(c.logger)
	}
	if c.prober == nil {
		c.prober = procexec.NewExecProber(c.invoker, cfg.Timeouts.Probe, c.logger)
	}
	if c.backend == nil {
		b, err := ocr.NewBackend(cfg.Engine.Backend, ocr.BackendOptions{
			Invoker:        c.invoker,
			Tool:           cfg.Tools.Tesseract,
			TessdataPrefix: cfg.Engine.TessdataPrefix,
			PageSegMode:    cfg.Engine.PageSegMode,
			Timeout:        cfg.Timeouts.Recognize,
			Logger:         c.logger,
		})
		if err != nil {
			return nil, err
		}
		c.backend = b
	}

	var err error
	if c.lang, err = lang.Parse(cfg.Language.Default); err != nil {
		return nil, err
	}
	if c.fallback, err = lang.NormalizeOr(cfg.Language.Fallback, ocr.DefaultFallback); err != nil {
		return nil, err
	}
	if c.mode, err = assembler.ParseMode(cfg.Overlay.Mode); err != nil {
		return nil, err
	}
	if c.color, err = imaging.ParseColor(cfg.Overlay.Color); err != nil {
		return nil, err
	}
	c.logger.Debug("converter ready",
		zap.String("backend", c.backend.Name()),
		zap.String("lang", c.lang.String()),
		zap.String("fallback", c.fallback.String()),
		zap.String("overlay", string(c.mode)),
		zap.String("color", c.color.Hex()))
	return c, nil
}

// Result describes a finished conversion.
type Result struct {
	JobID    string
	Route    Route
	Language string
	// Pages is the page count on the raster route; the bundler does not
	// report it.
	Pages    int
	Output   []byte
	Duration time.Duration
}

// Convert returns a searchable version of src. languages is anything
// lang.Normalize accepts; input naming no language selects the configured
// default.
func (c *Converter) Convert(ctx context.Context, src []byte, languages any) ([]byte, error) {
	res, err := c.Run(ctx, src, languages)
	if err != nil {
		return nil, err
	}
	return res.Output, nil
}

// Run is Convert with a report of how the conversion went.
func (c *Converter) Run(ctx context.Context, src []byte, languages any) (*Result, error) {
	start := time.Now()
	res := &Result{JobID: uuid.NewString()}
	log := c.logger.With(zap.String("job", res.JobID))

	spec, err := c.languages(languages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	res.Language = spec.String()

	if len(src) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidInput)
	}
	if !raster.IsPDF(src) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, raster.ErrNotPDF)
	}

	res.Route = c.selectRoute(ctx)
	log = log.With(zap.String("route", string(res.Route)), zap.String("lang", res.Language))
	log.Info("conversion started", zap.String("size", humanize.Bytes(uint64(len(src)))))

	switch res.Route {
	case RouteBundler:
		res.Output, err = c.runBundler(ctx, src, spec, log)
	case RouteRaster:
		res.Output, res.Pages, err = c.runRaster(ctx, src, spec, res.JobID, log)
	default:
		err = fmt.Errorf("%w: neither %s nor %s is installed", ErrNoOCRRoute, c.cfg.Tools.Bundler, c.cfg.Tools.Rasterizer)
	}
	res.Duration = time.Since(start)
	if err != nil {
		log.Error("conversion failed", zap.String("kind", Kind(err)), zap.Duration("duration", res.Duration), zap.Error(err))
		return nil, err
	}

	log.Info("conversion finished",
		zap.Int("pages", res.Pages),
		zap.String("size", humanize.Bytes(uint64(len(res.Output)))),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (c *Converter) languages(v any) (lang.Spec, error) {
	return lang.NormalizeOr(v, c.lang)
}

func (c *Converter) selectRoute(ctx context.Context) Route {
	if !c.cfg.Bundler.Disabled && c.prober.Available(ctx, c.bundler) {
		return RouteBundler
	}
	if c.prober.Available(ctx, c.rasterer) {
		return RouteRaster
	}
	return RouteNone
}

// Capabilities reports which tools are usable and the route Convert would
// take right now.
type Capabilities struct {
	Bundler    bool   `json:"bundler"`
	Rasterizer bool   `json:"rasterizer"`
	Tesseract  bool   `json:"tesseract"`
	Backend    string `json:"backend"`
	Route      Route  `json:"route"`
	Language   string `json:"default_language"`
}

// Capabilities probes the host.
func (c *Converter) Capabilities(ctx context.Context) Capabilities {
	caps := Capabilities{
		Bundler:    c.prober.Available(ctx, c.bundler),
		Rasterizer: c.prober.Available(ctx, c.rasterer),
		Tesseract:  c.prober.Available(ctx, c.tess),
		Backend:    c.backend.Name(),
		Language:   c.lang.String(),
	}
	switch {
	case caps.Bundler && !c.cfg.Bundler.Disabled:
		caps.Route = RouteBundler
	case caps.Rasterizer:
		caps.Route = RouteRaster
	default:
		caps.Route = RouteNone
	}
	return caps
}

// PageCount reports the number of pages in src.
func (c *Converter) PageCount(src []byte) (int, error) {
	n, err := raster.PageCount(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return n, nil
}
