package httpapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sievelab/paperdex/internal/domain"
	answeruc "github.com/sievelab/paperdex/internal/usecase/answer"
	healthuc "github.com/sievelab/paperdex/internal/usecase/health"
	ingestuc "github.com/sievelab/paperdex/internal/usecase/ingest"
	usageuc "github.com/sievelab/paperdex/internal/usecase/usage"
)

// mockPapers implements PaperService with overridable functions.
type mockPapers struct {
	uploadFn  func(ctx context.Context, filename string, data []byte) (domain.Document, error)
	getFn     func(ctx context.Context, id string) (domain.Document, error)
	listFn    func(ctx context.Context) ([]domain.Document, error)
	deleteFn  func(ctx context.Context, id string) error
	statsFn   func(ctx context.Context) (ingestuc.Stats, error)
	rebuildFn func(ctx context.Context) (int, error)
}

func (m *mockPapers) Upload(ctx context.Context, filename string, data []byte) (domain.Document, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, filename, data)
	}
	return domain.Document{ID: "doc-1", Filename: filename, Status: domain.StatusPending}, nil
}

func (m *mockPapers) Get(ctx context.Context, id string) (domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.Document{}, domain.ErrDocumentNotFound
}

func (m *mockPapers) List(ctx context.Context) ([]domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPapers) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPapers) Stats(ctx context.Context) (ingestuc.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return ingestuc.Stats{ByStatus: map[domain.Status]int{}}, nil
}

func (m *mockPapers) Rebuild(ctx context.Context) (int, error) {
	if m.rebuildFn != nil {
		return m.rebuildFn(ctx)
	}
	return 0, nil
}

// mockAnswers implements AnswerService.
type mockAnswers struct {
	askFn func(ctx context.Context, documentID, question string, opts answeruc.Options) (domain.Answer, error)
}

func (m *mockAnswers) Ask(ctx context.Context, documentID, question string, opts answeruc.Options) (domain.Answer, error) {
	if m.askFn != nil {
		return m.askFn(ctx, documentID, question, opts)
	}
	return domain.Answer{Text: "answer", Model: "test-llm"}, nil
}

// mockUsage implements UsageService.
type mockUsage struct {
	reportFn func(ctx context.Context) usageuc.Report
}

func (m *mockUsage) Report(ctx context.Context) usageuc.Report {
	if m.reportFn != nil {
		return m.reportFn(ctx)
	}
	return usageuc.Report{}
}

// mockHealth implements HealthService.
type mockHealth struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealth) Check(ctx context.Context) healthuc.Report {
	if m.checkFn != nil {
		return m.checkFn(ctx)
	}
	return healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}
}

type testServer struct {
	papers  *mockPapers
	answers *mockAnswers
	usage   *mockUsage
	health  *mockHealth
	router  *chi.Mux
}

func newTestServer() *testServer {
	ts := &testServer{
		papers:  &mockPapers{},
		answers: &mockAnswers{},
		usage:   &mockUsage{},
		health:  &mockHealth{},
	}
	srv := NewServer(ts.papers, ts.answers, ts.usage, ts.health, zap.NewNop()).
		WithEmbeddingModel("test-embedder")
	ts.router = chi.NewRouter()
	srv.Register(ts.router)
	return ts
}

// multipartBody builds a multipart request body with a single "file" part.
func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func newUploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, "file", filename, data)
	req, err := http.NewRequest(http.MethodPost, "/papers/upload", body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	return req
}
