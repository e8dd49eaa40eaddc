// Package chunker splits cleaned document text into overlapping,
// sentence-aligned chunks sized for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/sievelab/paperdex/internal/domain"
)

// Defaults sized for embedding models with ~8k token windows.
const (
	DefaultSize    = 700
	DefaultOverlap = 100
)

// Config controls the sliding window. Size and Overlap are in runes.
type Config struct {
	Size    int
	Overlap int
}

// Chunker implements a sliding window splitter that prefers to break at
// sentence boundaries and carries overlap between consecutive chunks.
type Chunker struct {
	size    int
	overlap int
}

// New validates the config and creates a Chunker. Zero values fall back to
// the defaults.
func New(cfg Config) (*Chunker, error) {
	if cfg.Size == 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = DefaultOverlap
	}
	if cfg.Size < 0 {
		return nil, fmt.Errorf("chunk size must be positive: %w", domain.ErrInvalidInput)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return nil, fmt.Errorf("overlap must be in [0, size): %w", domain.ErrInvalidInput)
	}
	return &Chunker{size: cfg.Size, overlap: cfg.Overlap}, nil
}

type pageSpan struct {
	number int
	start  int // rune offset in the joined text, inclusive
	end    int // exclusive
}

// Chunk splits the document pages into ordered chunks. Page text is joined
// into one stream so chunks may span page breaks; each chunk records the
// 1-based page range it was drawn from.
func (c *Chunker) Chunk(documentID string, pages []domain.Page) ([]domain.Chunk, error) {
	text, spans := joinPages(pages)
	if len(text) == 0 {
		return nil, fmt.Errorf("document has no extractable text: %w", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	start := 0

	for start < len(text) {
		end := start + c.size
		if end > len(text) {
			end = len(text)
		}

		// prefer a sentence boundary, but never shrink below half a window
		if end < len(text) {
			for i := end - 1; i > start+c.size/2; i-- {
				if isSentenceEnd(text[i]) {
					end = i + 1
					break
				}
			}
		}

		piece := strings.TrimSpace(string(text[start:end]))
		if piece != "" {
			pageStart, pageEnd := pageRange(spans, start, end)
			chunks = append(chunks, domain.Chunk{
				DocumentID: documentID,
				Seq:        len(chunks),
				Text:       piece,
				PageStart:  pageStart,
				PageEnd:    pageEnd,
			})
		}

		if end >= len(text) {
			break
		}

		newStart := end - c.overlap
		if newStart <= start {
			newStart = start + 1 // ensure progress
		}
		start = newStart
	}

	return chunks, nil
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '\n'
}

// joinPages concatenates page text with single spaces, recording the rune
// span each page occupies in the joined stream.
func joinPages(pages []domain.Page) ([]rune, []pageSpan) {
	var b strings.Builder
	spans := make([]pageSpan, 0, len(pages))
	offset := 0

	for _, p := range pages {
		trimmed := strings.TrimSpace(p.Text)
		if trimmed == "" {
			continue
		}
		if offset > 0 {
			b.WriteByte(' ')
			offset++
		}
		runes := len([]rune(trimmed))
		spans = append(spans, pageSpan{number: p.Number, start: offset, end: offset + runes})
		b.WriteString(trimmed)
		offset += runes
	}

	return []rune(b.String()), spans
}

// pageRange returns the first and last page numbers overlapping [start, end).
func pageRange(spans []pageSpan, start, end int) (int, int) {
	first, last := 0, 0
	for _, s := range spans {
		if s.end <= start {
			continue
		}
		if s.start >= end {
			break
		}
		if first == 0 {
			first = s.number
		}
		last = s.number
	}
	return first, last
}
