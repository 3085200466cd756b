package raster

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF is returned for input that does not look like a PDF document.
var ErrNotPDF = errors.New("input is not a PDF document")

// ErrNoPages is returned for a PDF without any page.
var ErrNoPages = errors.New("PDF has no pages")

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	model.ConfigPath = "disable"
}

// pageObject matches a page dictionary type entry but not the page tree's
// "/Type /Pages".
var pageObject = regexp.MustCompile(`/Type\s*/Page(?:[^s\w]|$)`)

// IsPDF reports whether data is sniffed as a PDF document.
func IsPDF(data []byte) bool {
	return mimetype.Detect(data).Is("application/pdf")
}

// PageCount returns the number of pages in src.
//
// pdfcpu parses the document in relaxed validation mode. Scanner output is
// often slightly malformed, so when pdfcpu gives up the page dictionaries are
// counted directly instead.
func PageCount(src []byte) (int, error) {
	if !IsPDF(src) {
		return 0, ErrNotPDF
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(src), conf)
	if err != nil || n <= 0 {
		n = len(pageObject.FindAllIndex(src, -1))
	}
	if n <= 0 {
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNoPages, err)
		}
		return 0, ErrNoPages
	}
	return n, nil
}
