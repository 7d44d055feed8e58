package extract

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// scopeSeparator is how the page generator encodes "::" in file names.
const scopeSeparator = "_1_1"

// typePagePrefixes mark page names that carry an encoded type name.
var typePagePrefixes = []string{"class_", "interface_", "struct_"}

// fullNameFromURL derives the fully qualified type name from a page URL.
// The generator encodes "::" as "_1_1" and marks the word boundaries
// inside one name with single underscores, so
// "class_yukar_1_1_engine_1_1_map_scene.html" carries
// "Yukar.Engine.MapScene". Interface and struct pages follow the same
// scheme. The fallback is returned when the URL does not follow it.
func fullNameFromURL(rawURL, fallback string) string {
	var encoded string
	for _, prefix := range typePagePrefixes {
		if _, after, found := strings.Cut(rawURL, prefix); found {
			encoded = after
			break
		}
	}
	if encoded == "" {
		return fallback
	}
	stem, _, _ := strings.Cut(encoded, ".html")

	// Caser values are stateful, one per call keeps this safe under
	// concurrent extraction workers.
	caser := cases.Title(language.Und)

	var segments []string
	for _, segment := range strings.Split(stem, scopeSeparator) {
		var words []string
		for _, word := range strings.Split(segment, "_") {
			if word == "" || isDigits(word) {
				continue
			}
			words = append(words, caser.String(word))
		}
		if len(words) > 0 {
			segments = append(segments, strings.Join(words, ""))
		}
	}
	if len(segments) == 0 {
		return fallback
	}
	return strings.Join(segments, ".")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
