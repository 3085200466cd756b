// Package pdfdoc builds small image-and-text PDF documents on top of
// pdfcpu's object model.
//
// It supports exactly what a searchable scan needs: one full-page image per
// page and the standard Helvetica font with WinAnsi encoding for the text
// layer. Objects live in a pdfcpu cross-reference table and are serialized
// by pdfcpu's writer with a classic xref section. Content streams are built
// operator by operator with Content.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Creator is written into the document information dictionary.
const Creator = "searchpdf-mcp"

// FontName is the resource name of the shared Helvetica font.
const FontName = "F1"

// ErrNoPages is returned by Bytes for a document without pages.
var ErrNoPages = errors.New("document has no pages")

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	model.ConfigPath = "disable"
}

// Options configures a Document.
type Options struct {
	// Compress Flate-encodes page content streams.
	Compress bool
	// Title is stored in the information dictionary when non-empty.
	Title string
}

// Document accumulates pages until Bytes serializes them.
type Document struct {
	opts     Options
	ctx      *model.Context
	pagesRef types.IndirectRef
	pages    types.Dict
	font     types.IndirectRef
	count    int
}

// New creates an empty document.
func New(opts Options) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	// The page tree default is overridden by every page's own MediaBox.
	ctx, err := pdfcpu.CreateContextWithXRefTable(conf, &types.Dim{Width: 595, Height: 842})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	pagesRef, err := ctx.Pages()
	if err != nil {
		return nil, fmt.Errorf("create page tree: %w", err)
	}
	pages, err := ctx.DereferenceDict(*pagesRef)
	if err != nil {
		return nil, fmt.Errorf("create page tree: %w", err)
	}

	font, err := ctx.IndRefForNewObject(types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	})
	if err != nil {
		return nil, fmt.Errorf("add font: %w", err)
	}

	info := types.Dict{"Creator": textString(Creator)}
	if opts.Title != "" {
		info["Title"] = textString(opts.Title)
	}
	infoRef, err := ctx.IndRefForNewObject(info)
	if err != nil {
		return nil, fmt.Errorf("add info: %w", err)
	}
	ctx.Info = infoRef

	return &Document{
		opts:     opts,
		ctx:      ctx,
		pagesRef: *pagesRef,
		pages:    pages,
		font:     *font,
	}, nil
}

// PageCount returns the number of pages added so far.
func (d *Document) PageCount() int { return d.count }

// addStream registers a stream object whose data is already encoded as the
// Filter entry of dict says.
func (d *Document) addStream(dict types.Dict, data []byte) (types.IndirectRef, error) {
	sd := types.NewStreamDict(dict, 0, nil, nil, nil)
	sd.Content = data
	if err := sd.Encode(); err != nil {
		return types.IndirectRef{}, err
	}
	ref, err := d.ctx.IndRefForNewObject(sd)
	if err != nil {
		return types.IndirectRef{}, err
	}
	return *ref, nil
}

// AddPage appends a page of the given size in user-space units. images maps
// resource names used by content to image objects.
func (d *Document) AddPage(width, height float64, images map[string]Image, content *Content) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid page size %sx%s", Number(width), Number(height))
	}
	if content == nil {
		content = &Content{}
	}

	data := content.Bytes()
	contentDict := types.NewDict()
	if d.opts.Compress {
		z, err := deflate(data)
		if err != nil {
			return fmt.Errorf("compress content stream: %w", err)
		}
		data = z
		contentDict["Filter"] = types.Name("FlateDecode")
	}
	contentRef, err := d.addStream(contentDict, data)
	if err != nil {
		return fmt.Errorf("add content stream: %w", err)
	}

	resources := types.Dict{
		"Font": types.Dict{FontName: d.font},
		"ProcSet": types.Array{
			types.Name("PDF"), types.Name("Text"), types.Name("ImageB"), types.Name("ImageC"),
		},
	}
	if len(images) > 0 {
		xobj := types.Dict{}
		for name, img := range images {
			xobj[name] = img.ref
		}
		resources["XObject"] = xobj
	}

	pageRef, err := d.ctx.IndRefForNewObject(types.Dict{
		"Type":      types.Name("Page"),
		"Parent":    d.pagesRef,
		"MediaBox":  types.Array{types.Integer(0), types.Integer(0), types.Float(width), types.Float(height)},
		"Resources": resources,
		"Contents":  contentRef,
	})
	if err != nil {
		return fmt.Errorf("add page: %w", err)
	}

	kids, _ := d.pages["Kids"].(types.Array)
	d.pages["Kids"] = append(kids, *pageRef)
	d.count++
	d.pages["Count"] = types.Integer(d.count)
	d.ctx.PageCount = d.count
	return nil
}

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	if d.count == 0 {
		return nil, ErrNoPages
	}
	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}
	return buf.Bytes(), nil
}

// textString encodes s as a WinAnsi literal for the information dictionary.
func textString(s string) types.StringLiteral {
	lit := LiteralString(EncodeText(s))
	return types.StringLiteral(lit[1 : len(lit)-1])
}

// Number formats v with at most four decimals and no exponent.
func Number(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
