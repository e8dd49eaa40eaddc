package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sievelab/paperdex/internal/domain"
)

// DefaultMaxUploadBytes caps accepted file size at 32 MiB.
const DefaultMaxUploadBytes = 32 << 20

// Service accepts uploads, dedupes them by content fingerprint, and hands
// accepted documents to the worker pool through the queue.
type Service struct {
	papers         Repository
	chunks         ChunkStore
	queue          *Queue
	maxUploadBytes int64
	logger         *zap.Logger
}

// New creates an ingest service.
func New(papers Repository, chunks ChunkStore, queue *Queue, logger *zap.Logger) *Service {
	return &Service{
		papers:         papers,
		chunks:         chunks,
		queue:          queue,
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         logger,
	}
}

// WithMaxUploadSize configures the upload size cap in bytes.
func (s *Service) WithMaxUploadSize(n int64) *Service {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Upload registers a file for ingestion and returns its document record.
// The document ID is the sha256 fingerprint of the bytes, so re-uploading
// the same file returns the existing record without re-processing; only a
// previously failed document is queued again.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (domain.Document, error) {
	if len(data) == 0 {
		return domain.Document{}, fmt.Errorf("empty file: %w", domain.ErrInvalidInput)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return domain.Document{}, fmt.Errorf(
			"file size %d exceeds limit %d: %w", len(data), s.maxUploadBytes, domain.ErrInvalidInput,
		)
	}
	if filename == "" {
		filename = "upload.pdf"
	}

	id := domain.Fingerprint(data)

	existing, err := s.papers.Get(ctx, id)
	switch {
	case err == nil:
		if existing.Status != domain.StatusFailed {
			s.logger.Debug("Duplicate upload",
				zap.String("document_id", id),
				zap.String("status", string(existing.Status)),
			)
			return existing, nil
		}
		return s.reingest(ctx, existing, data)
	case errors.Is(err, domain.ErrDocumentNotFound):
		return s.admit(ctx, id, filename, data)
	default:
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
}

// admit creates a fresh pending document and queues it.
func (s *Service) admit(ctx context.Context, id, filename string, data []byte) (domain.Document, error) {
	claimed, err := s.papers.ClaimIngest(ctx, id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("claim ingest: %w", err)
	}
	if !claimed {
		// A concurrent upload of the same bytes won the claim. Its record
		// may not be visible yet; report pending either way.
		if doc, gerr := s.papers.Get(ctx, id); gerr == nil {
			return doc, nil
		}
		return domain.Document{
			ID:         id,
			Filename:   filename,
			UploadedAt: time.Now().UTC(),
			Status:     domain.StatusPending,
		}, nil
	}

	doc := domain.Document{
		ID:         id,
		Filename:   filename,
		UploadedAt: time.Now().UTC(),
		Status:     domain.StatusPending,
	}
	if err := s.papers.Create(ctx, &doc); err != nil {
		s.releaseClaim(ctx, id)
		return domain.Document{}, fmt.Errorf("create document: %w", err)
	}

	if err := s.queue.Enqueue(NewTask(id, data)); err != nil {
		if derr := s.papers.Delete(ctx, id); derr != nil {
			s.logger.Error("Rollback after full queue failed",
				zap.String("document_id", id), zap.Error(derr),
			)
		}
		s.releaseClaim(ctx, id)
		return domain.Document{}, fmt.Errorf("enqueue %s: %w", id, err)
	}

	s.logger.Info("Upload accepted",
		zap.String("document_id", id),
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)
	return doc, nil
}

// reingest queues a previously failed document again using the freshly
// uploaded bytes.
func (s *Service) reingest(ctx context.Context, doc domain.Document, data []byte) (domain.Document, error) {
	claimed, err := s.papers.ClaimIngest(ctx, doc.ID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("claim ingest: %w", err)
	}
	if !claimed {
		// Another upload already requeued it.
		return doc, nil
	}

	if err := s.papers.MarkPending(ctx, doc.ID); err != nil {
		s.releaseClaim(ctx, doc.ID)
		return domain.Document{}, fmt.Errorf("reset failed document: %w", err)
	}

	if err := s.queue.Enqueue(NewTask(doc.ID, data)); err != nil {
		if ferr := s.papers.MarkFailed(ctx, doc.ID, doc.Error); ferr != nil {
			s.logger.Error("Rollback after full queue failed",
				zap.String("document_id", doc.ID), zap.Error(ferr),
			)
		}
		s.releaseClaim(ctx, doc.ID)
		return domain.Document{}, fmt.Errorf("enqueue %s: %w", doc.ID, err)
	}

	doc.Status = domain.StatusPending
	doc.Error = ""
	s.logger.Info("Failed document requeued", zap.String("document_id", doc.ID))
	return doc, nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.Document, error) {
	doc, err := s.papers.Get(ctx, id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.papers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document record together with its chunks and claim.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.papers.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.chunks.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	s.releaseClaim(ctx, id)
	return nil
}

// Stats aggregates document and chunk counts across the store.
type Stats struct {
	TotalPapers int
	TotalChunks int
	TotalPages  int
	ByStatus    map[domain.Status]int
}

// Stats reports store-wide document counts. Chunk and page totals only count
// ready documents because the pipeline records them on completion.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	docs, err := s.papers.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list documents: %w", err)
	}

	st := Stats{ByStatus: make(map[domain.Status]int)}
	for _, doc := range docs {
		st.TotalPapers++
		st.ByStatus[doc.Status]++
		st.TotalChunks += doc.ChunkCount
		st.TotalPages += doc.PageCount
	}
	return st, nil
}

// Rebuild drops every document together with its chunks and claim, returning
// the number of documents removed. Content is restored by uploading again.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	docs, err := s.papers.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	deleted := 0
	for _, doc := range docs {
		if err := s.papers.Delete(ctx, doc.ID); err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				continue // removed concurrently
			}
			return deleted, fmt.Errorf("delete document %s: %w", doc.ID, err)
		}
		if err := s.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
			return deleted, fmt.Errorf("delete chunks %s: %w", doc.ID, err)
		}
		s.releaseClaim(ctx, doc.ID)
		deleted++
	}

	s.logger.Info("Store rebuilt", zap.Int("documents_deleted", deleted))
	return deleted, nil
}

func (s *Service) releaseClaim(ctx context.Context, id string) {
	if err := s.papers.ReleaseIngest(ctx, id); err != nil {
		s.logger.Warn("Release ingest claim failed",
			zap.String("document_id", id), zap.Error(err),
		)
	}
}
