package ingest

import (
	"context"

	"github.com/sievelab/paperdex/internal/domain"
)

// mockRepo is a hand-rolled Repository with overridable behavior.
type mockRepo struct {
	createFn         func(ctx context.Context, doc *domain.Document) error
	getFn            func(ctx context.Context, id string) (domain.Document, error)
	listFn           func(ctx context.Context) ([]domain.Document, error)
	deleteFn         func(ctx context.Context, id string) error
	markProcessingFn func(ctx context.Context, id string) error
	markReadyFn      func(ctx context.Context, id string, pages, chunks int, meta domain.Metadata) error
	markFailedFn     func(ctx context.Context, id, detail string) error
	markPendingFn    func(ctx context.Context, id string) error
	claimFn          func(ctx context.Context, id string) (bool, error)
	releaseFn        func(ctx context.Context, id string) error
}

func (m *mockRepo) Create(ctx context.Context, doc *domain.Document) error {
	if m.createFn != nil {
		return m.createFn(ctx, doc)
	}
	return nil
}

func (m *mockRepo) Get(ctx context.Context, id string) (domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.Document{}, domain.ErrDocumentNotFound
}

func (m *mockRepo) List(ctx context.Context) ([]domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockRepo) MarkProcessing(ctx context.Context, id string) error {
	if m.markProcessingFn != nil {
		return m.markProcessingFn(ctx, id)
	}
	return nil
}

func (m *mockRepo) MarkReady(ctx context.Context, id string, pages, chunks int, meta domain.Metadata) error {
	if m.markReadyFn != nil {
		return m.markReadyFn(ctx, id, pages, chunks, meta)
	}
	return nil
}

func (m *mockRepo) MarkFailed(ctx context.Context, id, detail string) error {
	if m.markFailedFn != nil {
		return m.markFailedFn(ctx, id, detail)
	}
	return nil
}

func (m *mockRepo) MarkPending(ctx context.Context, id string) error {
	if m.markPendingFn != nil {
		return m.markPendingFn(ctx, id)
	}
	return nil
}

func (m *mockRepo) ClaimIngest(ctx context.Context, id string) (bool, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, id)
	}
	return true, nil
}

func (m *mockRepo) ReleaseIngest(ctx context.Context, id string) error {
	if m.releaseFn != nil {
		return m.releaseFn(ctx, id)
	}
	return nil
}

// mockChunkStore is a hand-rolled ChunkStore.
type mockChunkStore struct {
	replaceFn func(ctx context.Context, documentID string, chunks []domain.Chunk) error
	deleteFn  func(ctx context.Context, documentID string) error
}

func (m *mockChunkStore) Replace(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, documentID, chunks)
	}
	return nil
}

func (m *mockChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, documentID)
	}
	return nil
}

// mockExtractor returns fixed pages.
type mockExtractor struct {
	pages []domain.Page
	err   error
}

func (m *mockExtractor) Extract(_ []byte) ([]domain.Page, error) {
	return m.pages, m.err
}

// mockChunker returns fixed chunks.
type mockChunker struct {
	chunks []domain.Chunk
	err    error
	gotID  string
}

func (m *mockChunker) Chunk(documentID string, _ []domain.Page) ([]domain.Chunk, error) {
	m.gotID = documentID
	return m.chunks, m.err
}

// mockBatchEmbedder returns one fixed vector per input text.
type mockBatchEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.vector
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: 10 * len(texts),
	}, nil
}
