package domain

import "time"

// Status is the ingestion state of a document.
type Status string

const (
	// StatusPending means the document is accepted but not yet picked up by a worker.
	StatusPending Status = "pending"
	// StatusProcessing means the ingestion pipeline is running.
	StatusProcessing Status = "processing"
	// StatusReady means the document is indexed and searchable.
	StatusReady Status = "ready"
	// StatusFailed means ingestion hit an unrecoverable error; Document.Error holds the detail.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is an end state of the ingestion machine.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// CanTransition reports whether the ingestion state machine allows from -> to.
// pending -> processing -> {ready | failed}; failed documents may be re-ingested.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusReady || to == StatusFailed
	case StatusFailed:
		return to == StatusPending
	default:
		return false
	}
}

// Document is an uploaded paper. ID is the content fingerprint, so the
// document is content-addressed and re-uploads dedupe naturally.
type Document struct {
	ID         string
	Filename   string
	UploadedAt time.Time
	Status     Status
	Error      string // set only when Status == StatusFailed
	PageCount  int
	ChunkCount int
	Meta       Metadata
}

// Metadata is best-effort bibliographic data extracted from the first page.
type Metadata struct {
	Title    string
	Authors  string
	Abstract string
	Year     int
	ArxivID  string
	DOI      string
}

// Page is one page of extracted, cleaned document text.
type Page struct {
	Number int
	Text   string
}
