package answer

import (
	"context"

	"github.com/sievelab/paperdex/internal/domain"
)

type mockDocs struct {
	doc domain.Document
	err error
}

func (m *mockDocs) Get(_ context.Context, _ string) (domain.Document, error) {
	return m.doc, m.err
}

type mockRetriever struct {
	chunks []domain.ScoredChunk
	err    error
	gotK   int
	gotVec []float32
}

func (m *mockRetriever) Query(_ context.Context, _ string, vector []float32, k int) ([]domain.ScoredChunk, error) {
	m.gotK = k
	m.gotVec = vector
	return m.chunks, m.err
}

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

type mockLLM struct {
	completion domain.Completion
	err        error
	gotPrompt  string
	calls      int
}

func (m *mockLLM) Generate(_ context.Context, prompt string) (domain.Completion, error) {
	m.calls++
	m.gotPrompt = prompt
	return m.completion, m.err
}
