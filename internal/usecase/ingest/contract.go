package ingest

import (
	"context"

	"github.com/sievelab/paperdex/internal/domain"
	"github.com/sievelab/paperdex/internal/extract"
)

// Repository defines the storage contract for document records.
type Repository interface {
	Create(ctx context.Context, doc *domain.Document) error
	Get(ctx context.Context, id string) (domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
	MarkProcessing(ctx context.Context, id string) error
	MarkReady(ctx context.Context, id string, pageCount, chunkCount int, meta domain.Metadata) error
	MarkFailed(ctx context.Context, id, detail string) error
	MarkPending(ctx context.Context, id string) error
	ClaimIngest(ctx context.Context, id string) (bool, error)
	ReleaseIngest(ctx context.Context, id string) error
}

// ChunkStore persists embedded chunks for retrieval.
type ChunkStore interface {
	Replace(ctx context.Context, documentID string, chunks []domain.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Extractor turns raw PDF bytes into per-page text.
type Extractor interface {
	Extract(data []byte) ([]domain.Page, error)
}

// Chunker splits cleaned pages into retrieval units.
type Chunker interface {
	Chunk(documentID string, pages []domain.Page) ([]domain.Chunk, error)
}

// Embedder vectorizes chunk texts in batch.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// PDFExtractor is the production Extractor backed by the extract package.
type PDFExtractor struct{}

// Extract parses PDF bytes into pages.
func (PDFExtractor) Extract(data []byte) ([]domain.Page, error) {
	return extract.PDF(data)
}
