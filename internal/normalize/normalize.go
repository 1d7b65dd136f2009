// Package normalize cleans raw collector text before keyword scoring.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// allowedPunct is the punctuation kept by Normalize.
const allowedPunct = ".,;:()$-"

// Normalize lowercases text, drops punctuation outside ". , ; : ( ) $ -" and
// collapses whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded := strings.ToLower(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case strings.ContainsRune(allowedPunct, r):
			b.WriteRune(r)
		}
	}

	// Dropping runes can leave jamo sequences that compose on a second pass.
	return norm.NFKC.String(Collapse(b.String()))
}

// Collapse trims text and squeezes whitespace runs to a single space, keeping case and punctuation.
func Collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// CollapseLines collapses whitespace within each line and keeps one newline between
// non-empty lines, so line-bounded patterns still see the breaks.
func CollapseLines(text string) string {
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	out := lines[:0]
	for _, line := range lines {
		if c := Collapse(line); c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, "\n")
}
