// Package token canonicalizes vocabulary atoms (clause tags and map keys).
//
// Canonicalize maps every spelling of a word sequence to one lowercase,
// hyphen-separated token: "STARTS_WITH", "startsWith", "Starts With" and
// "starts-with" all become "starts-with". The function is total, idempotent
// and safe for concurrent use.
package token

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/qnorm/internal/ir"
)

// Separator joins the words of a canonical token.
const Separator = '-'

// Canonicalize returns the canonical token spelling of s.
//
// Atoms without any letter or digit (operators such as "=", "!=", "<=", "-")
// are returned unchanged apart from NFC normalization.
func Canonicalize(s string) string {
	s = norm.NFC.String(s)
	if !hasWordRune(s) {
		return s
	}

	split := splitWords(s)

	// cases.Caser is stateful, so each call gets its own.
	lowered := cases.Lower(language.Und).String(split)

	var b strings.Builder
	b.Grow(len(lowered))
	pendingSep := false
	for _, r := range lowered {
		if isSeparator(r) {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteRune(Separator)
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FromValue canonicalizes an atom (IRString or IRToken) into an IRToken.
// Returns false for any other value.
func FromValue(v ir.IRValue) (ir.IRToken, bool) {
	s, ok := ir.AtomString(v)
	if !ok {
		return "", false
	}
	return ir.IRToken(Canonicalize(s)), true
}

// IsCanonical reports whether s is already in canonical token form.
func IsCanonical(s string) bool {
	return s != "" && Canonicalize(s) == s
}

// splitWords inserts a separator at camelCase word boundaries:
// "startsWith" -> "starts-With", "HTTPServer" -> "HTTP-Server".
func splitWords(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune(Separator)
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isSeparator(r rune) bool {
	return r == '_' || r == Separator || unicode.IsSpace(r)
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
