// Package assembler builds the searchable output PDF from rendered pages and
// the words recognized on them.
//
// Each page is sized to its image in pixels, so one image pixel is one PDF
// unit. The image covers the whole page and every word is drawn on top in
// Helvetica at the baseline of its bounding box.
package assembler

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/imaging"
	"github.com/ironsheep/searchpdf-mcp/internal/ocr"
	"github.com/ironsheep/searchpdf-mcp/internal/pdfdoc"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

// Font size clamp used when none is configured.
const (
	DefaultMinSize = 6
	DefaultMaxSize = 36
)

// Mode selects how the text layer is rendered.
type Mode string

const (
	// ModeVisible fills glyphs in the overlay color over the image.
	ModeVisible Mode = "visible"
	// ModeHidden renders glyphs invisibly; text stays selectable and searchable.
	ModeHidden Mode = "hidden"
)

// ParseMode validates a mode name. Empty selects ModeVisible.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeVisible:
		return ModeVisible, nil
	case ModeHidden:
		return ModeHidden, nil
	}
	return "", fmt.Errorf("unknown overlay mode %q (want %s or %s)", s, ModeVisible, ModeHidden)
}

// Error reports a failure to build the output document.
type Error struct {
	Page int
	Err  error
}

func (e *Error) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("assembly failed on page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("assembly failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures an Assembler.
type Options struct {
	Mode  Mode
	Color imaging.RGBColor
	// MinSize and MaxSize clamp the font size derived from word height.
	MinSize float64
	MaxSize float64
	// Compress Flate-encodes content streams.
	Compress bool
	Title    string
	Logger   *zap.Logger
}

// Placement is where and how large a word is drawn, in PDF units with the
// origin at the bottom-left corner.
type Placement struct {
	X    float64
	Y    float64
	Size float64
}

// Place maps a box in image space (top-left origin) onto a page of height
// pageHeight: the word's baseline sits at the bottom of its box and the font
// size follows the box height within [minSize, maxSize].
func Place(box ocr.BoundingBox, pageHeight, minSize, maxSize float64) Placement {
	h := math.Max(1, box.Y1-box.Y0)
	return Placement{
		X:    box.X0,
		Y:    pageHeight - (box.Y0 + h),
		Size: math.Max(minSize, math.Min(maxSize, h)),
	}
}

// Assembler accumulates pages in order.
type Assembler struct {
	opts  Options
	doc   *pdfdoc.Document
	words int
}

// New creates an empty Assembler.
func New(opts Options) *Assembler {
	if opts.Mode == "" {
		opts.Mode = ModeVisible
	}
	if opts.MinSize <= 0 {
		opts.MinSize = DefaultMinSize
	}
	if opts.MaxSize < opts.MinSize {
		opts.MaxSize = math.Max(DefaultMaxSize, opts.MinSize)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Assembler{opts: opts}
}

// Pages returns the number of pages added.
func (a *Assembler) Pages() int {
	if a.doc == nil {
		return 0
	}
	return a.doc.PageCount()
}

// AddPage appends img as the next page with words drawn over it.
func (a *Assembler) AddPage(img raster.PageImage, words []ocr.Word) error {
	if img.Width <= 0 || img.Height <= 0 {
		return &Error{Page: img.Index, Err: fmt.Errorf("invalid page size %dx%d", img.Width, img.Height)}
	}
	if a.doc == nil {
		doc, err := pdfdoc.New(pdfdoc.Options{Compress: a.opts.Compress, Title: a.opts.Title})
		if err != nil {
			return &Error{Page: img.Index, Err: err}
		}
		a.doc = doc
	}
	xobj, err := a.doc.AddImage(img.Data)
	if err != nil {
		return &Error{Page: img.Index, Err: err}
	}

	w, h := float64(img.Width), float64(img.Height)
	c := &pdfdoc.Content{}
	c.DrawImage("Im1", 0, 0, w, h)

	if len(words) > 0 {
		c.BeginText()
		if a.opts.Mode == ModeHidden {
			c.SetRenderMode(pdfdoc.RenderInvisible)
		} else {
			col := a.opts.Color
			c.SetFillRGB(col.R, col.G, col.B)
		}
		for _, word := range words {
			p := Place(word.Box, h, a.opts.MinSize, a.opts.MaxSize)
			c.SetFont(pdfdoc.FontName, p.Size)
			c.MoveTo(p.X, p.Y)
			c.ShowText(word.Text)
		}
		c.EndText()
	}

	if err := a.doc.AddPage(w, h, map[string]pdfdoc.Image{"Im1": xobj}, c); err != nil {
		return &Error{Page: img.Index, Err: err}
	}
	a.words += len(words)

	a.opts.Logger.Debug("page assembled",
		zap.Int("page", img.Index),
		zap.Int("words", len(words)),
		zap.String("image", humanize.Bytes(uint64(len(img.Data)))))
	return nil
}

// Bytes serializes the document.
func (a *Assembler) Bytes() ([]byte, error) {
	if a.doc == nil {
		return nil, &Error{Err: pdfdoc.ErrNoPages}
	}
	out, err := a.doc.Bytes()
	if err != nil {
		return nil, &Error{Err: err}
	}
	a.opts.Logger.Debug("document assembled",
		zap.Int("pages", a.Pages()),
		zap.Int("words", a.words),
		zap.String("size", humanize.Bytes(uint64(len(out)))))
	return out, nil
}
