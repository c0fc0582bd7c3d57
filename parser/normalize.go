package parser

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText replaces non-breaking spaces with ordinary spaces, collapses
// runs of whitespace to a single space and trims the ends. Normalizing
// already-normalized text is a no-op.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
