// Package raster turns PDF pages into images with an external rasterizer
// (pdftoppm) and counts pages with pdfcpu.
//
// Each page is rendered on its own. A lossless PNG is attempted first and a
// JPEG second; the rasterizer's exit status is not trusted, only the presence
// of a decodable output file is. Falling back on one page does not change the
// order tried on the next.
package raster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/imaging"
	"github.com/ironsheep/searchpdf-mcp/internal/procexec"
	"github.com/ironsheep/searchpdf-mcp/internal/workspace"
)

// DefaultDPI is the render resolution used when none is configured.
const DefaultDPI = 300

// DefaultTool is the rasterizer executable.
const DefaultTool = "pdftoppm"

// Format is the encoding of a rendered page.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Formats lists the encodings in the order they are attempted.
var Formats = []Format{FormatPNG, FormatJPEG}

// Ext returns the file extension pdftoppm uses for f.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// MIME returns the media type of f.
func (f Format) MIME() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// PageImage is one rendered page. Index is 1-based; Width and Height are in
// pixels.
type PageImage struct {
	Index  int
	Format Format
	Width  int
	Height int
	Data   []byte
}

// FailedError reports a page for which no format produced an image. Listing
// is the workspace content at the time of failure.
type FailedError struct {
	Page    int
	Listing string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("rasterization failed for page %d (workspace: %s)", e.Page, e.Listing)
}

// TimeoutError reports a rasterizer run that exceeded its deadline.
type TimeoutError struct {
	Page    int
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rasterization of page %d timed out after %s", e.Page, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return procexec.ErrTimeout }

// Options configures a Rasterizer.
type Options struct {
	// Tool is the rasterizer executable. Defaults to DefaultTool.
	Tool string
	// DPI is the render resolution. Defaults to DefaultDPI.
	DPI int
	// Timeout bounds each rasterizer run.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Rasterizer renders single pages through an external tool.
type Rasterizer struct {
	invoker procexec.Invoker
	tool    string
	dpi     int
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Rasterizer that runs the tool through invoker.
func New(invoker procexec.Invoker, opts Options) *Rasterizer {
	if opts.Tool == "" {
		opts.Tool = DefaultTool
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Rasterizer{
		invoker: invoker,
		tool:    opts.Tool,
		dpi:     opts.DPI,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Rasterize renders page (1-based) of the PDF at inputPath into ws.
func (r *Rasterizer) Rasterize(ctx context.Context, ws *workspace.Workspace, inputPath string, page int) (PageImage, error) {
	if page < 1 {
		return PageImage{}, fmt.Errorf("invalid page number %d", page)
	}
	prefix := ws.Join(fmt.Sprintf("page%04d", page))

	for _, format := range Formats {
		if err := ctx.Err(); err != nil {
			return PageImage{}, err
		}

		cmd := procexec.Command{
			Name:    r.tool,
			Args:    r.args(format, page, inputPath, prefix),
			Timeout: r.timeout,
		}
		res, err := r.invoker.Run(ctx, cmd)
		if err != nil {
			if errors.Is(err, procexec.ErrTimeout) {
				return PageImage{}, &TimeoutError{Page: page, Timeout: r.timeout}
			}
			if ctx.Err() != nil {
				return PageImage{}, err
			}
			r.logger.Debug("rasterizer did not run",
				zap.Int("page", page), zap.String("format", string(format)), zap.Error(err))
			continue
		}
		if res.ExitCode != 0 {
			r.logger.Debug("rasterizer exited non-zero",
				zap.Int("page", page),
				zap.String("format", string(format)),
				zap.Int("exit_code", res.ExitCode),
				zap.String("stderr", procexec.Excerpt(res.Stderr, 512)))
		}

		img, ok := r.collect(prefix, format, page)
		if !ok {
			continue
		}
		r.logger.Debug("page rasterized",
			zap.Int("page", page),
			zap.String("format", string(format)),
			zap.Int("width", img.Width),
			zap.Int("height", img.Height),
			zap.String("size", humanize.Bytes(uint64(len(img.Data)))))
		return img, nil
	}

	return PageImage{}, &FailedError{Page: page, Listing: ws.Listing()}
}

func (r *Rasterizer) args(format Format, page int, input, prefix string) []string {
	n := strconv.Itoa(page)
	return []string{
		"-r", strconv.Itoa(r.dpi),
		"-f", n,
		"-l", n,
		"-" + string(format),
		input,
		prefix,
	}
}

// collect finds and validates the file produced for page. pdftoppm pads the
// page number to the width of the document's page count, so the suffix is
// matched numerically rather than by exact name.
func (r *Rasterizer) collect(prefix string, format Format, page int) (PageImage, bool) {
	path, ok := findOutput(prefix, format.Ext(), page)
	if !ok {
		return PageImage{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return PageImage{}, false
	}

	info, err := imaging.Inspect(data)
	if err != nil || info.MIME != format.MIME() {
		r.logger.Debug("rasterizer output has unexpected type",
			zap.Int("page", page), zap.String("file", filepath.Base(path)), zap.String("mime", info.MIME), zap.Error(err))
		return PageImage{}, false
	}
	// The header alone does not catch truncated pixel data.
	img, err := imaging.Decode(data)
	if err != nil {
		r.logger.Debug("rasterizer output not decodable",
			zap.Int("page", page), zap.String("file", filepath.Base(path)), zap.Error(err))
		return PageImage{}, false
	}
	if b := img.Bounds(); b.Dx() != info.Width || b.Dy() != info.Height {
		r.logger.Debug("rasterizer output size mismatch",
			zap.Int("page", page), zap.String("file", filepath.Base(path)))
		return PageImage{}, false
	}

	return PageImage{
		Index:  page,
		Format: format,
		Width:  info.Width,
		Height: info.Height,
		Data:   data,
	}, true
}

func findOutput(prefix, ext string, page int) (string, bool) {
	matches, err := filepath.Glob(prefix + "-*." + ext)
	if err != nil {
		return "", false
	}
	base := filepath.Base(prefix) + "-"
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), "."+ext)
		n, err := strconv.Atoi(strings.TrimPrefix(name, base))
		if err == nil && n == page {
			return m, true
		}
	}
	return "", false
}
