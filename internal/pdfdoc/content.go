package pdfdoc

import (
	"bytes"
	"fmt"
)

// Text rendering modes (PDF 32000-1 9.3.6).
const (
	RenderFill      = 0
	RenderInvisible = 3
)

// Content builds a page content stream one operator at a time.
type Content struct {
	buf bytes.Buffer
}

// Bytes returns the operators written so far.
func (c *Content) Bytes() []byte { return c.buf.Bytes() }

func (c *Content) op(format string, args ...any) {
	fmt.Fprintf(&c.buf, format, args...)
	c.buf.WriteByte('\n')
}

// DrawImage paints the named image XObject into the rectangle with lower-left
// corner (x, y).
func (c *Content) DrawImage(name string, x, y, w, h float64) {
	c.op("q")
	c.op("%s 0 0 %s %s %s cm", Number(w), Number(h), Number(x), Number(y))
	c.op("/%s Do", name)
	c.op("Q")
}

// BeginText opens a text object.
func (c *Content) BeginText() { c.op("BT") }

// EndText closes a text object.
func (c *Content) EndText() { c.op("ET") }

// SetFont selects the font resource and size.
func (c *Content) SetFont(name string, size float64) {
	c.op("/%s %s Tf", name, Number(size))
}

// SetRenderMode sets the text rendering mode.
func (c *Content) SetRenderMode(mode int) { c.op("%d Tr", mode) }

// SetFillRGB sets the nonstroking color; components are in 0..1.
func (c *Content) SetFillRGB(r, g, b float64) {
	c.op("%s %s %s rg", Number(r), Number(g), Number(b))
}

// MoveTo positions the text matrix at (x, y) without scaling.
func (c *Content) MoveTo(x, y float64) {
	c.op("1 0 0 1 %s %s Tm", Number(x), Number(y))
}

// ShowText draws s in the current font. s is transcoded to WinAnsi.
func (c *Content) ShowText(s string) {
	c.op("%s Tj", LiteralString(EncodeText(s)))
}
