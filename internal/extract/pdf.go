// Package extract turns uploaded PDF bytes into cleaned per-page text and
// best-effort bibliographic metadata.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sievelab/paperdex/internal/domain"
)

// PDF parses raw PDF bytes into per-page text. Pages that cannot be read or
// contain no extractable text are skipped; page numbers are 1-based and
// preserved from the source document.
func PDF(data []byte) ([]domain.Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %w", domain.ErrInvalidInput)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w: %v", domain.ErrInvalidInput, err)
	}

	numPages := reader.NumPage()
	pages := make([]domain.Page, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		pages = append(pages, domain.Page{Number: i, Text: text})
	}

	return pages, nil
}
