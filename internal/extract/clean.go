package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reHyphenBreak = regexp.MustCompile(`-\s*\n\s*`)
	reLoneNumber  = regexp.MustCompile(`(?m)^\d+\s*$`)
	reArxivStamp  = regexp.MustCompile(`arXiv:\d+\.\d+(v\d+)?`)
	rePageFooter  = regexp.MustCompile(`Page \d+/\d+`)
	reCopyright   = regexp.MustCompile(`©[^\n]*?\d{4}`)
	reCitation    = regexp.MustCompile(`\[[0-9,\-\s]+\]`)
	reSeparators  = regexp.MustCompile(`[-=*_]{3,}`)
	reWhitespace  = regexp.MustCompile(`\s+`)
)

// Clean normalizes raw page text for chunking: joins hyphenated line breaks,
// strips header/footer noise and citation brackets, applies NFKC
// normalization, and collapses all whitespace runs into single spaces.
func Clean(text string) string {
	text = reHyphenBreak.ReplaceAllString(text, "")
	text = reLoneNumber.ReplaceAllString(text, "")
	text = reArxivStamp.ReplaceAllString(text, " ")
	text = rePageFooter.ReplaceAllString(text, " ")
	text = reCopyright.ReplaceAllString(text, " ")

	text = norm.NFKC.String(text)

	text = reCitation.ReplaceAllString(text, " ")
	text = reSeparators.ReplaceAllString(text, " ")

	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}
