package domain

import "fmt"

// Chunk is a bounded span of a document's text, the unit of retrieval.
// Chunks are created once during ingestion and never mutated; Seq preserves
// the original text order end-to-end.
type Chunk struct {
	DocumentID string
	Seq        int
	Text       string
	PageStart  int
	PageEnd    int
	Vector     []float32
}

// ChunkID returns the stable identifier of a chunk within its document.
func ChunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s:%d", documentID, seq)
}

// ScoredChunk is a retrieval hit: a chunk with its similarity score.
type ScoredChunk struct {
	Chunk
	Score float64
}
