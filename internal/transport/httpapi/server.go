package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sievelab/paperdex/internal/domain"
	answeruc "github.com/sievelab/paperdex/internal/usecase/answer"
	healthuc "github.com/sievelab/paperdex/internal/usecase/health"
	ingestuc "github.com/sievelab/paperdex/internal/usecase/ingest"
	usageuc "github.com/sievelab/paperdex/internal/usecase/usage"
)

// PaperService is the upload/lookup surface consumed by the HTTP layer.
type PaperService interface {
	Upload(ctx context.Context, filename string, data []byte) (domain.Document, error)
	Get(ctx context.Context, id string) (domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (ingestuc.Stats, error)
	Rebuild(ctx context.Context) (int, error)
}

// AnswerService answers a question against one document.
type AnswerService interface {
	Ask(ctx context.Context, documentID, question string, opts answeruc.Options) (domain.Answer, error)
}

// UsageService reports token consumption against the configured budgets.
type UsageService interface {
	Report(ctx context.Context) usageuc.Report
}

// HealthService aggregates component health checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the paper API.
type Server struct {
	papers         PaperService
	answers        AnswerService
	usage          UsageService
	health         HealthService
	embeddingModel string
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	papers PaperService,
	answers AnswerService,
	usage UsageService,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		papers:  papers,
		answers: answers,
		usage:   usage,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		failedDocumentHandler,
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrDocumentNotReady, http.StatusConflict, codeDocumentNotReady),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, codeLLMProviderError),
		sentinelHandler(domain.ErrVectorStoreUnavailable, http.StatusServiceUnavailable, codeVectorStoreUnavailable),
		sentinelHandler(domain.ErrIngestQueueFull, http.StatusServiceUnavailable, codeIngestQueueFull),
	}
	return s
}

// WithEmbeddingModel sets the model name reported by the stats endpoint.
func (s *Server) WithEmbeddingModel(model string) *Server {
	s.embeddingModel = model
	return s
}

// Register mounts all API routes on the given router. Middleware is applied
// by the caller before registration.
func (s *Server) Register(r chi.Router) {
	r.Post("/papers/upload", s.UploadPaper)
	r.Get("/papers", s.ListPapers)
	r.Get("/papers/{id}", s.GetPaper)
	r.Delete("/papers/{id}", s.DeletePaper)
	r.Post("/papers/{id}/search", s.SearchPaper)
	r.Get("/prompts", s.GetPrompts)
	r.Get("/stats", s.GetStats)
	r.Post("/rebuild", s.RebuildStore)
	r.Get("/usage", s.GetUsage)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// UploadPaper handles POST /papers/upload (multipart, field "file").
func (s *Server) UploadPaper(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "read upload: "+err.Error())
		return
	}

	doc, err := s.papers.Upload(r.Context(), header.Filename, data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	// A byte-identical re-upload of an already indexed document returns 200,
	// a freshly queued or still running ingestion returns 202.
	status := http.StatusAccepted
	if doc.Status == domain.StatusReady {
		status = http.StatusOK
	}

	writeJSON(w, status, uploadResponse{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Status:     string(doc.Status),
	})
}

// ListPapers handles GET /papers.
func (s *Server) ListPapers(w http.ResponseWriter, r *http.Request) {
	docs, err := s.papers.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]paperResponse, len(docs))
	for i := range docs {
		items[i] = paperToResponse(docs[i])
	}

	writeJSON(w, http.StatusOK, paperListResponse{
		Items: items,
		Total: len(items),
	})
}

// GetPaper handles GET /papers/{id}.
func (s *Server) GetPaper(w http.ResponseWriter, r *http.Request) {
	doc, err := s.papers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paperToResponse(doc))
}

// DeletePaper handles DELETE /papers/{id}.
func (s *Server) DeletePaper(w http.ResponseWriter, r *http.Request) {
	if err := s.papers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchPaper handles POST /papers/{id}/search.
func (s *Server) SearchPaper(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, tokens := domain.NewContextWithUsage(r.Context())
	answer, err := s.answers.Ask(ctx, chi.URLParam(r, "id"), req.Question, answeruc.Options{
		TopK:         req.TopK,
		Mode:         req.Mode,
		CustomPrompt: req.CustomPrompt,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sources := make([]sourceItem, len(answer.Sources))
	for i, src := range answer.Sources {
		sources[i] = sourceItem{
			ChunkID:   src.ChunkID,
			Seq:       src.Seq,
			Excerpt:   src.Excerpt,
			Score:     src.Score,
			PageStart: src.PageStart,
			PageEnd:   src.PageEnd,
		}
	}

	setEmbeddingHeaders(w, tokens)
	writeJSON(w, http.StatusOK, searchResponse{
		Answer:  answer.Text,
		Model:   answer.Model,
		Sources: sources,
	})
}

// GetPrompts handles GET /prompts.
func (s *Server) GetPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, promptModesResponse{
		Modes: answeruc.Modes(),
	})
}

// GetStats handles GET /stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.papers.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	statusCounts := make(map[string]int, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		statusCounts[string(status)] = n
	}

	indexStatus := "ready"
	if stats.TotalPapers == 0 && stats.TotalChunks == 0 {
		indexStatus = "empty"
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalPapers:    stats.TotalPapers,
		TotalChunks:    stats.TotalChunks,
		TotalPages:     stats.TotalPages,
		StatusCounts:   statusCounts,
		EmbeddingModel: s.embeddingModel,
		IndexStatus:    indexStatus,
	})
}

// RebuildStore handles POST /rebuild. Every document and its chunks are
// dropped; content comes back by uploading again.
func (s *Server) RebuildStore(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.papers.Rebuild(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rebuildResponse{
		Status:  "ok",
		Deleted: deleted,
	})
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	report := s.usage.Report(r.Context())

	writeJSON(w, http.StatusOK, usageResponse{
		Daily:   periodToResponse(report.Daily),
		Monthly: periodToResponse(report.Monthly),
	})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.TokenUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrDocumentNotFound,
		domain.ErrDocumentNotReady,
		domain.ErrDocumentFailed,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
		domain.ErrLLMProviderError,
		domain.ErrVectorStoreUnavailable,
		domain.ErrIngestQueueFull,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// failedDocumentHandler handles ErrDocumentFailed with the retained failure detail,
// so the client learns why ingestion broke without a second lookup.
func failedDocumentHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrDocumentFailed) {
		return false
	}
	writeError(w, http.StatusConflict, codeDocumentFailed, err.Error())
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func paperToResponse(doc domain.Document) paperResponse {
	resp := paperResponse{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		UploadedAt: doc.UploadedAt.UTC(),
		Status:     string(doc.Status),
		PageCount:  doc.PageCount,
		ChunkCount: doc.ChunkCount,
	}
	if doc.Error != "" {
		resp.Error = &doc.Error
	}
	if doc.Meta != (domain.Metadata{}) {
		resp.Meta = &metadataResponse{
			Title:    doc.Meta.Title,
			Authors:  doc.Meta.Authors,
			Abstract: doc.Meta.Abstract,
			Year:     doc.Meta.Year,
			ArxivID:  doc.Meta.ArxivID,
			DOI:      doc.Meta.DOI,
		}
	}
	return resp
}

func periodToResponse(p usageuc.PeriodUsage) periodUsageResponse {
	return periodUsageResponse{
		Limit:     p.Limit,
		Used:      p.Used,
		Remaining: p.Remaining,
		Exhausted: p.Exhausted,
		ResetsAt:  p.ResetsAt,
	}
}
