package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sievelab/paperdex/internal/domain"
	answeruc "github.com/sievelab/paperdex/internal/usecase/answer"
	healthuc "github.com/sievelab/paperdex/internal/usecase/health"
	ingestuc "github.com/sievelab/paperdex/internal/usecase/ingest"
	usageuc "github.com/sievelab/paperdex/internal/usecase/usage"
)

func TestUploadPaper_Accepted(t *testing.T) {
	ts := newTestServer()
	ts.papers.uploadFn = func(_ context.Context, filename string, data []byte) (domain.Document, error) {
		if filename != "attention.pdf" {
			t.Errorf("unexpected filename %q", filename)
		}
		if !bytes.Equal(data, []byte("%PDF-1.4 fake")) {
			t.Errorf("unexpected upload bytes %q", data)
		}
		return domain.Document{ID: "abc123", Filename: filename, Status: domain.StatusPending}, nil
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, newUploadRequest(t, "attention.pdf", []byte("%PDF-1.4 fake")))

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DocumentID != "abc123" || resp.Status != "pending" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestUploadPaper_DuplicateReady(t *testing.T) {
	ts := newTestServer()
	ts.papers.uploadFn = func(_ context.Context, filename string, _ []byte) (domain.Document, error) {
		return domain.Document{ID: "abc123", Filename: filename, Status: domain.StatusReady}, nil
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, newUploadRequest(t, "attention.pdf", []byte("same bytes")))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for ready duplicate, got %d", w.Code)
	}
}

func TestUploadPaper_MissingFile(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/papers/upload", bytes.NewBufferString("not multipart"))
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUploadPaper_QueueFull(t *testing.T) {
	ts := newTestServer()
	ts.papers.uploadFn = func(_ context.Context, _ string, _ []byte) (domain.Document, error) {
		return domain.Document{}, fmt.Errorf("enqueue: %w", domain.ErrIngestQueueFull)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, newUploadRequest(t, "a.pdf", []byte("data")))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != codeIngestQueueFull {
		t.Errorf("unexpected error code %q", resp.Code)
	}
}

func TestGetPaper(t *testing.T) {
	ts := newTestServer()
	ts.papers.getFn = func(_ context.Context, id string) (domain.Document, error) {
		return domain.Document{
			ID:         id,
			Filename:   "resnet.pdf",
			UploadedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Status:     domain.StatusReady,
			PageCount:  12,
			ChunkCount: 48,
			Meta:       domain.Metadata{Title: "Deep Residual Learning", Year: 2015},
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/papers/abc123", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp paperResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DocumentID != "abc123" || resp.ChunkCount != 48 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Meta == nil || resp.Meta.Title != "Deep Residual Learning" {
		t.Errorf("expected metadata in response, got %+v", resp.Meta)
	}
	if resp.Error != nil {
		t.Errorf("expected no error field for ready document")
	}
}

func TestGetPaper_NotFound(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/papers/missing", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != codeDocumentNotFound {
		t.Errorf("unexpected error code %q", resp.Code)
	}
}

func TestListPapers(t *testing.T) {
	ts := newTestServer()
	ts.papers.listFn = func(_ context.Context) ([]domain.Document, error) {
		return []domain.Document{
			{ID: "a", Status: domain.StatusReady},
			{ID: "b", Status: domain.StatusFailed, Error: "no extractable text"},
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/papers", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp paperListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("unexpected list %+v", resp)
	}
	if resp.Items[1].Error == nil || *resp.Items[1].Error != "no extractable text" {
		t.Errorf("expected failure detail on failed document")
	}
}

func TestDeletePaper(t *testing.T) {
	ts := newTestServer()
	deleted := ""
	ts.papers.deleteFn = func(_ context.Context, id string) error {
		deleted = id
		return nil
	}

	req := httptest.NewRequest(http.MethodDelete, "/papers/abc123", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if deleted != "abc123" {
		t.Errorf("expected delete of abc123, got %q", deleted)
	}
}

func TestDeletePaper_NotFound(t *testing.T) {
	ts := newTestServer()
	ts.papers.deleteFn = func(_ context.Context, _ string) error {
		return domain.ErrDocumentNotFound
	}

	req := httptest.NewRequest(http.MethodDelete, "/papers/missing", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSearchPaper(t *testing.T) {
	ts := newTestServer()
	ts.answers.askFn = func(ctx context.Context, documentID, question string, opts answeruc.Options) (domain.Answer, error) {
		if documentID != "abc123" {
			t.Errorf("unexpected document id %q", documentID)
		}
		if question != "what is attention?" {
			t.Errorf("unexpected question %q", question)
		}
		if opts.TopK != 3 || opts.Mode != "tech" {
			t.Errorf("unexpected options %+v", opts)
		}
		domain.UsageFromContext(ctx).AddTokens(42)
		return domain.Answer{
			Text:  "A weighting mechanism.",
			Model: "test-llm",
			Sources: []domain.Source{
				{ChunkID: "abc123:0", Seq: 0, Excerpt: "Attention is...", Score: 0.91, PageStart: 1, PageEnd: 2},
			},
		}, nil
	}

	body := `{"question": "what is attention?", "top_k": 3, "mode": "tech"}`
	req := httptest.NewRequest(http.MethodPost, "/papers/abc123/search", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Embedding-Tokens"); got != "42" {
		t.Errorf("expected X-Embedding-Tokens=42, got %q", got)
	}

	var resp searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "A weighting mechanism." || resp.Model != "test-llm" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ChunkID != "abc123:0" {
		t.Errorf("unexpected sources %+v", resp.Sources)
	}
}

func TestSearchPaper_InvalidBody(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/papers/abc123/search", bytes.NewBufferString("{broken"))
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSearchPaper_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty question", fmt.Errorf("question: %w", domain.ErrInvalidInput), http.StatusBadRequest, codeValidationFailed},
		{"not ready", domain.ErrDocumentNotReady, http.StatusConflict, codeDocumentNotReady},
		{"failed", fmt.Errorf("ingestion failed: pdf corrupt: %w", domain.ErrDocumentFailed), http.StatusConflict, codeDocumentFailed},
		{"quota", domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeEmbeddingQuotaExceeded},
		{"embedding provider", domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError},
		{"llm provider", domain.ErrLLMProviderError, http.StatusBadGateway, codeLLMProviderError},
		{"store down", domain.ErrVectorStoreUnavailable, http.StatusServiceUnavailable, codeVectorStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.answers.askFn = func(context.Context, string, string, answeruc.Options) (domain.Answer, error) {
				return domain.Answer{}, tt.err
			}

			req := httptest.NewRequest(http.MethodPost, "/papers/abc123/search", bytes.NewBufferString(`{"question":"q"}`))
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestSearchPaper_FailedDocumentKeepsDetail(t *testing.T) {
	ts := newTestServer()
	ts.answers.askFn = func(context.Context, string, string, answeruc.Options) (domain.Answer, error) {
		return domain.Answer{}, fmt.Errorf("ingestion failed: no extractable text: %w", domain.ErrDocumentFailed)
	}

	req := httptest.NewRequest(http.MethodPost, "/papers/abc123/search", bytes.NewBufferString(`{"question":"q"}`))
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Message == "" || resp.Message == "internal error" {
		t.Errorf("expected failure detail in message, got %q", resp.Message)
	}
}

func TestGetPrompts(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/prompts", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp promptModesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := []string{"default", "summary", "tech", "citation", "custom"}
	if len(resp.Modes) != len(want) {
		t.Fatalf("expected %d modes, got %v", len(want), resp.Modes)
	}
	for i, mode := range want {
		if resp.Modes[i] != mode {
			t.Errorf("modes[%d] = %q, want %q", i, resp.Modes[i], mode)
		}
	}
}

func TestGetStats(t *testing.T) {
	ts := newTestServer()
	ts.papers.statsFn = func(context.Context) (ingestuc.Stats, error) {
		return ingestuc.Stats{
			TotalPapers: 3,
			TotalChunks: 42,
			TotalPages:  60,
			ByStatus: map[domain.Status]int{
				domain.StatusReady:  2,
				domain.StatusFailed: 1,
			},
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp statsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalPapers != 3 || resp.TotalChunks != 42 || resp.TotalPages != 60 {
		t.Errorf("unexpected totals %+v", resp)
	}
	if resp.StatusCounts["ready"] != 2 || resp.StatusCounts["failed"] != 1 {
		t.Errorf("unexpected status counts %v", resp.StatusCounts)
	}
	if resp.EmbeddingModel != "test-embedder" {
		t.Errorf("unexpected embedding model %q", resp.EmbeddingModel)
	}
	if resp.IndexStatus != "ready" {
		t.Errorf("unexpected index status %q", resp.IndexStatus)
	}
}

func TestGetStats_Empty(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp statsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.IndexStatus != "empty" {
		t.Errorf("expected empty index status, got %q", resp.IndexStatus)
	}
}

func TestRebuildStore(t *testing.T) {
	ts := newTestServer()
	ts.papers.rebuildFn = func(context.Context) (int, error) {
		return 4, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp rebuildResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Deleted != 4 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestRebuildStore_StoreDown(t *testing.T) {
	ts := newTestServer()
	ts.papers.rebuildFn = func(context.Context) (int, error) {
		return 0, domain.ErrVectorStoreUnavailable
	}

	req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestGetUsage(t *testing.T) {
	ts := newTestServer()
	resets := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	ts.usage.reportFn = func(context.Context) usageuc.Report {
		return usageuc.Report{
			Daily:   usageuc.PeriodUsage{Limit: 1000, Used: 400, Remaining: 600, ResetsAt: resets},
			Monthly: usageuc.PeriodUsage{Limit: 10000, Used: 10000, Remaining: 0, Exhausted: true, ResetsAt: resets},
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/usage", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp usageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Daily.Remaining != 600 {
		t.Errorf("unexpected daily usage %+v", resp.Daily)
	}
	if !resp.Monthly.Exhausted {
		t.Errorf("expected monthly budget exhausted")
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Checks["database"] != "ok" {
		t.Errorf("unexpected health response %+v", resp)
	}
}

func TestHealthz_Degraded(t *testing.T) {
	ts := newTestServer()
	ts.health.checkFn = func(context.Context) healthuc.Report {
		return healthuc.Report{
			Status: healthuc.Degraded,
			Checks: map[string]healthuc.CheckResult{
				"database":  healthuc.CheckOK,
				"embedding": healthuc.CheckError,
			},
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for degraded health, got %d", w.Code)
	}
}
