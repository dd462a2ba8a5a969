package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var markupRegex = regexp.MustCompile(`<.*?>`)

var persianReplacer = strings.NewReplacer(
	"ي", "ی", // ي -> ی
	"ك", "ک", // ك -> ک
)

// NormalizePersian maps Arabic codepoint variants to their Persian
// equivalents. the portal mixes both encodings for the same letters.
func NormalizePersian(s string) string {
	return persianReplacer.Replace(s)
}

func CollapseWhitespace(s string) string {
	s = strings.Trim(s, " \n\t")
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// StripMarkup drops tag-like fragments (<BR> and friends) that the portal
// embeds inside attribute values.
func StripMarkup(s string) string {
	return markupRegex.ReplaceAllString(s, "")
}
