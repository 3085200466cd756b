// Package lang normalizes recognition language specifiers.
//
// A specifier names one or more tesseract language codes. Callers may pass it
// in several shapes; all of them normalize to a single canonical token where
// codes are joined with Delimiter:
//
//	"por"            -> "por"
//	"por+eng"        -> "por+eng"
//	[]string{"por", "eng"}     -> "por+eng"
//	`["por","eng"]`  -> "por+eng"
//
// An empty specifier normalizes to Default, or to the caller's default with
// NormalizeOr.
package lang

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const (
	// Delimiter joins codes in the canonical token.
	Delimiter = "+"

	// Default is used when no language is given.
	Default = "por+eng"
)

// ErrInvalid is returned for specifiers that cannot be normalized.
var ErrInvalid = errors.New("invalid language specifier")

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Spec is a canonical language token such as "por+eng".
type Spec string

// String returns the canonical token.
func (s Spec) String() string { return string(s) }

// Codes splits the token into its language codes.
func (s Spec) Codes() []string {
	if s == "" {
		return nil
	}
	return strings.Split(string(s), Delimiter)
}

// Normalize converts any accepted input shape into a canonical Spec.
//
// Accepted inputs are nil, string, Spec, []string and []any holding strings.
// A string beginning with "[" is decoded as a JSON list first.
func Normalize(v any) (Spec, error) {
	return NormalizeOr(v, Default)
}

// NormalizeOr is Normalize with def returned for input that names no codes.
func NormalizeOr(v any, def Spec) (Spec, error) {
	switch in := v.(type) {
	case nil:
		return def, nil
	case Spec:
		return parse(string(in), def)
	case string:
		return parse(in, def)
	case []string:
		return join(in, def)
	case []any:
		codes := make([]string, 0, len(in))
		for i, item := range in {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("%w: element %d is %T, not a string", ErrInvalid, i, item)
			}
			codes = append(codes, s)
		}
		return join(codes, def)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalid, v)
	}
}

// Parse normalizes a string specifier. It accepts a single code, a
// Delimiter-joined list, or the JSON encoding of a list of codes.
func Parse(s string) (Spec, error) {
	return parse(s, Default)
}

func parse(s string, def Spec) (Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	if strings.HasPrefix(s, "[") {
		var codes []string
		if err := json.Unmarshal([]byte(s), &codes); err != nil {
			return "", fmt.Errorf("%w: decode list %q: %v", ErrInvalid, s, err)
		}
		return join(codes, def)
	}
	return join(strings.Split(s, Delimiter), def)
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Spec {
	spec, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return spec
}

func join(parts []string, def Spec) (Spec, error) {
	seen := make(map[string]bool, len(parts))
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		// Elements of a list may themselves be joined tokens.
		for _, code := range strings.Split(p, Delimiter) {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if !codePattern.MatchString(code) {
				return "", fmt.Errorf("%w: bad code %q", ErrInvalid, code)
			}
			if seen[code] {
				continue
			}
			seen[code] = true
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return def, nil
	}
	return Spec(strings.Join(codes, Delimiter)), nil
}
