// Package slug builds URL-safe identifiers for shops, categories and products.
package slug

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const maxLength = 64

// Make lowercases s, strips diacritics and joins alphanumeric runs with single dashes.
func Make(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	dash := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > maxLength {
		out = strings.TrimSuffix(out[:maxLength], "-")
	}
	return out
}

// WithSuffix appends a short random suffix, used when the plain slug is taken.
func WithSuffix(s string) string {
	base := Make(s)
	suffix := uuid.NewString()[:6]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
