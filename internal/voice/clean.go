package voice

import (
	"regexp"
	"strings"
)

var annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// Clean strips whisper's bracketed annotations and collapses whitespace.
func Clean(s string) string {
	return strings.Join(strings.Fields(annotationRe.ReplaceAllString(s, " ")), " ")
}
