package normalize

import (
	"strings"
	"unicode"
)

// TitleCase lower-cases s and upper-cases the first rune of every
// whitespace-delimited token. Non-string input yields nil.
func TitleCase(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return titleCase(s)
}

func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			start = true
			b.WriteRune(r)
			continue
		}
		if start {
			r = unicode.ToUpper(r)
			start = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BuildArray accepts a sequence or a comma-separated string and returns the
// title-cased, non-empty tokens. Anything else yields an empty slice.
func BuildArray(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		for _, tok := range strings.Split(t, ",") {
			out = appendToken(out, tok)
		}
	case []string:
		for _, tok := range t {
			out = appendToken(out, tok)
		}
	case []any:
		for _, e := range t {
			if tok, ok := e.(string); ok {
				out = appendToken(out, tok)
			}
		}
	}
	return out
}

func appendToken(out []string, tok string) []string {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return out
	}
	return append(out, titleCase(tok))
}
