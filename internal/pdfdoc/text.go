package pdfdoc

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// EncodeText transcodes s to WinAnsiEncoding (Windows-1252). Runes without a
// WinAnsi code point become '?'.
func EncodeText(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// LiteralString renders b as a PDF literal string. Delimiters and the
// backslash are escaped; bytes outside printable ASCII are written as octal
// escapes so the content stream stays 7-bit clean.
func LiteralString(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + 2)
	sb.WriteByte('(')
	for _, c := range b {
		switch {
		case c == '(' || c == ')' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 0x20 || c > 0x7e:
			fmt.Fprintf(&sb, "\\%03o", c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
