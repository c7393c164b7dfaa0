// Package notation renders scientific notation in question text:
// exponents typed as "x^2" or "x2" become "x²", chemical formulas
// typed as "H2O" become "H₂O".
//
// Format is applied to the stored value itself, not at render time, so
// it must be idempotent: converted glyphs are not ASCII digits and are
// therefore never re-matched by the digit rules.
package notation

import (
	"regexp"
	"strings"
)

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄',
	'5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
}

var (
	caretRe  = regexp.MustCompile(`\^[0-9]+`)
	underRe  = regexp.MustCompile(`_[0-9]+`)
	subRunRe = regexp.MustCompile(`[₀₁₂₃₄₅₆₇₈₉][0-9]+`)
	supRunRe = regexp.MustCompile(`[⁰¹²³⁴⁵⁶⁷⁸⁹][0-9]+`)
	// Element-symbol shape: uppercase letter plus optional lowercase
	// letter, followed by digits ("H2O", "Ca2").
	elementRe = regexp.MustCompile(`[A-Z][a-z]?[0-9]+`)
	// Variable-exponent shape: lowercase letter at a word boundary
	// followed by digits ("x2").
	varExpRe = regexp.MustCompile(`\b[a-z][0-9]+`)
)

// Format converts exponent and chemical-formula digit sequences into
// superscript and subscript glyphs. The rules run in a fixed order and
// each operates on the output of the previous one. Formatting already
// formatted text is a no-op.
func Format(s string) string {
	// ^123 -> superscripts, caret removed.
	s = caretRe.ReplaceAllStringFunc(s, func(m string) string {
		return toGlyphs(m[1:], superscripts)
	})
	// _123 -> subscripts, underscore removed.
	s = underRe.ReplaceAllStringFunc(s, func(m string) string {
		return toGlyphs(m[1:], subscripts)
	})
	// A subscript glyph followed by plain digits extends the run, so
	// multi-digit subscripts typed one keystroke at a time converge.
	s = subRunRe.ReplaceAllStringFunc(s, func(m string) string {
		head, digits := splitAtDigit(m)
		return head + toGlyphs(digits, subscripts)
	})
	s = supRunRe.ReplaceAllStringFunc(s, func(m string) string {
		head, digits := splitAtDigit(m)
		return head + toGlyphs(digits, superscripts)
	})
	// Chemical formula convention: digits after an element symbol.
	s = elementRe.ReplaceAllStringFunc(s, func(m string) string {
		head, digits := splitAtDigit(m)
		return head + toGlyphs(digits, subscripts)
	})
	// Variable exponent convention: digits after a lone lowercase letter.
	s = varExpRe.ReplaceAllStringFunc(s, func(m string) string {
		head, digits := splitAtDigit(m)
		return head + toGlyphs(digits, superscripts)
	})
	return s
}

// FormatAll formats a slice of strings in place and returns it.
func FormatAll(ss []string) []string {
	for i, s := range ss {
		ss[i] = Format(s)
	}
	return ss
}

func toGlyphs(digits string, table map[rune]rune) string {
	var b strings.Builder
	for _, r := range digits {
		if g, ok := table[r]; ok {
			b.WriteRune(g)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitAtDigit splits a match into its non-digit head and the trailing
// ASCII digit run.
func splitAtDigit(m string) (head, digits string) {
	i := strings.IndexFunc(m, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return m, ""
	}
	return m[:i], m[i:]
}
