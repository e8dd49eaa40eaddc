package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sievelab/paperdex/internal/domain"
)

var (
	reDOI        = regexp.MustCompile(`(?i)10\.\d{4,9}/[-._;()/:A-Z0-9]+`)
	reArxivID    = regexp.MustCompile(`arXiv:(\d{4}\.\d{4,5})(v\d+)?`)
	reYear       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	reInitials   = regexp.MustCompile(`[A-Z]\.\s*[A-Z]`)
	reAbstract   = regexp.MustCompile(`(?is)abstract[:.\s]+(.+?)(?:\n\s*(?:[1I]\.|keywords|index terms)|\z)`)
	maxAbstract  = 1500
	maxTitleLine = 300
)

// Metadata pulls best-effort bibliographic fields from the raw text of the
// first page. Heuristic only: the first non-empty line is taken as the title,
// an early line with an email or author initials as the author line, the
// first plausible year as the publication year. DOI and arXiv identifiers
// are matched anywhere on the page.
func Metadata(firstPage string) domain.Metadata {
	var meta domain.Metadata

	if m := reDOI.FindString(firstPage); m != "" {
		meta.DOI = strings.TrimRight(m, ".,;")
	}
	if m := reArxivID.FindStringSubmatch(firstPage); m != nil {
		meta.ArxivID = m[1]
	}

	lines := nonEmptyLines(firstPage)
	if len(lines) > 0 && len(lines[0]) <= maxTitleLine {
		meta.Title = lines[0]
	}

	for i := 1; i < len(lines) && i < 5; i++ {
		if strings.Contains(lines[i], "@") || reInitials.MatchString(lines[i]) {
			meta.Authors = lines[i]
			break
		}
	}

	if m := reYear.FindString(firstPage); m != "" {
		if y, err := strconv.Atoi(m); err == nil {
			meta.Year = y
		}
	}

	if m := reAbstract.FindStringSubmatch(firstPage); m != nil {
		abstract := strings.TrimSpace(reWhitespace.ReplaceAllString(m[1], " "))
		if runes := []rune(abstract); len(runes) > maxAbstract {
			abstract = string(runes[:maxAbstract])
		}
		meta.Abstract = abstract
	}

	return meta
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
