package paper

import (
	"strconv"
	"time"

	"github.com/sievelab/paperdex/internal/domain"
)

// Hash field names for the paper record.
const (
	fieldFilename   = "filename"
	fieldUploadedAt = "uploaded_at"
	fieldStatus     = "status"
	fieldError      = "error"
	fieldPages      = "pages"
	fieldChunks     = "chunks"
	fieldTitle      = "title"
	fieldAuthors    = "authors"
	fieldAbstract   = "abstract"
	fieldYear       = "year"
	fieldArxivID    = "arxiv_id"
	fieldDOI        = "doi"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(doc *domain.Document) map[string]string {
	m := map[string]string{
		fieldFilename:   doc.Filename,
		fieldUploadedAt: doc.UploadedAt.UTC().Format(time.RFC3339Nano),
		fieldStatus:     string(doc.Status),
		fieldError:      doc.Error,
		fieldPages:      strconv.Itoa(doc.PageCount),
		fieldChunks:     strconv.Itoa(doc.ChunkCount),
	}
	addMetaFields(m, doc.Meta)
	return m
}

func addMetaFields(m map[string]string, meta domain.Metadata) {
	m[fieldTitle] = meta.Title
	m[fieldAuthors] = meta.Authors
	m[fieldAbstract] = meta.Abstract
	m[fieldYear] = strconv.Itoa(meta.Year)
	m[fieldArxivID] = meta.ArxivID
	m[fieldDOI] = meta.DOI
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id string, m map[string]string) domain.Document {
	doc := domain.Document{
		ID:       id,
		Filename: m[fieldFilename],
		Status:   domain.Status(m[fieldStatus]),
		Error:    m[fieldError],
		Meta: domain.Metadata{
			Title:    m[fieldTitle],
			Authors:  m[fieldAuthors],
			Abstract: m[fieldAbstract],
			ArxivID:  m[fieldArxivID],
			DOI:      m[fieldDOI],
		},
	}

	if ts, err := time.Parse(time.RFC3339Nano, m[fieldUploadedAt]); err == nil {
		doc.UploadedAt = ts
	}
	if n, err := strconv.Atoi(m[fieldPages]); err == nil {
		doc.PageCount = n
	}
	if n, err := strconv.Atoi(m[fieldChunks]); err == nil {
		doc.ChunkCount = n
	}
	if n, err := strconv.Atoi(m[fieldYear]); err == nil {
		doc.Meta.Year = n
	}

	return doc
}
