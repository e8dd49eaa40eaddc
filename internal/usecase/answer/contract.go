package answer

import (
	"context"

	"github.com/sievelab/paperdex/internal/domain"
)

// DocumentReader resolves documents for the readiness check.
type DocumentReader interface {
	Get(ctx context.Context, id string) (domain.Document, error)
}

// Retriever returns the top-k chunks of a document by similarity.
type Retriever interface {
	Query(ctx context.Context, documentID string, vector []float32, k int) ([]domain.ScoredChunk, error)
}

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// LLM generates the answer text.
type LLM interface {
	Generate(ctx context.Context, prompt string) (domain.Completion, error)
}
