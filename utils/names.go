package utils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeName turns a display name into a prim name. Accented letters lose
// their marks, anything else outside [A-Za-z0-9_] becomes an underscore, and
// a leading digit gets an underscore prefix.
func SanitizeName(name string) string {
	if name == "" {
		return "_"
	}
	if folded, _, err := transform.String(foldMarks(), name); err == nil {
		name = folded
	}
	var b strings.Builder
	for i, c := range name {
		switch {
		case c == '_', c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c)):
			if i == 0 && unicode.IsDigit(c) {
				b.WriteByte('_')
			}
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// foldMarks splits letters from their combining marks and drops the marks.
// Transformers keep state, so each call gets a fresh chain.
func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// UniqueName appends _1, _2, ... to name until taken reports false.
func UniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for i := 1; ; i++ {
		candidate := name + "_" + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}
