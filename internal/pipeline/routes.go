package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/assembler"
	"github.com/ironsheep/searchpdf-mcp/internal/lang"
	"github.com/ironsheep/searchpdf-mcp/internal/ocr"
	"github.com/ironsheep/searchpdf-mcp/internal/procexec"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
	"github.com/ironsheep/searchpdf-mcp/internal/workspace"
)

// stderrExcerpt bounds the bundler diagnostics carried in a BundlerError.
const stderrExcerpt = 2048

// bundlerArgs builds the bundler command line. "-" for input and output makes
// it read the source from stdin and write the result to stdout, so this route
// needs no workspace.
func (c *Converter) bundlerArgs(spec lang.Spec) []string {
	return []string{
		"-l", spec.String(),
		"--skip-text",
		"--optimize", strconv.Itoa(c.cfg.Bundler.Optimize),
		"--output-type", "pdf",
		"-", "-",
	}
}

func (c *Converter) runBundler(ctx context.Context, src []byte, spec lang.Spec, log *zap.Logger) ([]byte, error) {
	cmd := procexec.Command{
		Name:    c.cfg.Tools.Bundler,
		Args:    c.bundlerArgs(spec),
		Stdin:   src,
		Timeout: c.cfg.Timeouts.Bundler,
	}
	log.Debug("running bundler", zap.String("command", cmd.String()))

	res, err := c.invoker.Run(ctx, cmd)
	if err != nil {
		if errors.Is(err, procexec.ErrTimeout) {
			return nil, &BundlerTimeoutError{Timeout: c.cfg.Timeouts.Bundler}
		}
		return nil, fmt.Errorf("run bundler: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, &BundlerError{ExitStatus: res.ExitCode, Stderr: procexec.Excerpt(res.Stderr, stderrExcerpt)}
	}
	if len(res.Stdout) == 0 || !raster.IsPDF(res.Stdout) {
		return nil, &BundlerError{NoOutput: true, Stderr: procexec.Excerpt(res.Stderr, stderrExcerpt)}
	}
	return res.Stdout, nil
}

func (c *Converter) runRaster(ctx context.Context, src []byte, spec lang.Spec, jobID string, log *zap.Logger) (out []byte, pages int, err error) {
	ws, err := workspace.Acquire(c.cfg.WorkDir, jobID)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if rerr := ws.Release(); rerr != nil {
			log.Warn("workspace cleanup failed", zap.Error(rerr))
		}
	}()

	input, err := ws.WriteFile("input.pdf", src)
	if err != nil {
		return nil, 0, err
	}
	pages, err = raster.PageCount(src)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	session, err := ocr.Open(ctx, c.backend, spec, ocr.Options{
		Fallback:   c.fallback.String(),
		Preprocess: c.cfg.Engine.Preprocess,
		Logger:     log,
	})
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("recognition session close failed", zap.Error(cerr))
		}
	}()

	rz := raster.New(c.invoker, raster.Options{
		Tool:    c.cfg.Tools.Rasterizer,
		DPI:     c.cfg.Raster.DPI,
		Timeout: c.cfg.Timeouts.Rasterize,
		Logger:  log,
	})
	asm := assembler.New(assembler.Options{
		Mode:     c.mode,
		Color:    c.color,
		MinSize:  c.cfg.Overlay.MinSize,
		MaxSize:  c.cfg.Overlay.MaxSize,
		Compress: c.cfg.Overlay.Compress,
		Logger:   log,
	})

	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		img, err := rz.Rasterize(ctx, ws, input, page)
		if err != nil {
			return nil, 0, err
		}
		words, err := session.Recognize(ctx, img)
		if err != nil {
			return nil, 0, err
		}
		if err := asm.AddPage(img, words); err != nil {
			return nil, 0, err
		}
		log.Debug("page done",
			zap.Int("page", page),
			zap.Int("pages", pages),
			zap.String("format", string(img.Format)),
			zap.Int("words", len(words)))
	}

	out, err = asm.Bytes()
	if err != nil {
		return nil, 0, err
	}
	return out, pages, nil
}
