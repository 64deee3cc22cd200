// utils/text.go
package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeWordID maps typed or scanned input onto the stored word-id form:
// lowercase ASCII letters and digits, no separators. "Brave Quiet-Otter"
// becomes "bravequietotter".
func NormalizeWordID(input string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(slug.Make(input))
}

// NormalizeName trims and NFC-normalizes a display name. ok is false when the
// result is empty or longer than max runes.
func NormalizeName(input string, max int) (string, bool) {
	name := strings.Join(strings.Fields(norm.NFC.String(input)), " ")
	n := utf8.RuneCountInString(name)
	return name, n > 0 && n <= max
}

// SameAnswer compares two free-text answers ignoring case, surrounding space
// and Unicode composition differences.
func SameAnswer(a, b string) bool {
	// A Caser keeps state, so each call gets its own.
	folder := cases.Fold()
	fold := func(s string) string {
		return folder.String(norm.NFKC.String(strings.TrimSpace(s)))
	}
	return fold(a) == fold(b)
}
