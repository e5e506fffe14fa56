package textutil

import (
	"strings"
	"unicode"
)

// maxSegmentRunes keeps directory names under common filesystem limits even
// for multi-byte titles.
const maxSegmentRunes = 120

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"？", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName turns a title into a single safe path segment. Slashes,
// backslashes, colons, and asterisks become dashes; other unsafe characters
// and control characters are removed, runs of whitespace collapse to one
// space, and trailing dots are dropped.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	if runes := []rune(name); len(runes) > maxSegmentRunes {
		name = strings.TrimSpace(string(runes[:maxSegmentRunes]))
	}
	return strings.TrimRight(name, ". ")
}
