// Package paper persists document records as Redis hashes keyed by content
// fingerprint, and owns the ingest claim keys that serialize concurrent
// uploads of the same file.
package paper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sievelab/paperdex/internal/domain"
)

// store is the consumer interface for paper records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// Repo implements the document repository used by the ingest and answer services.
type Repo struct {
	store    store
	claimTTL time.Duration
}

// New creates a paper repository. claimTTL bounds how long a crashed worker
// can hold an ingest claim before the document becomes claimable again.
func New(s store, claimTTL time.Duration) *Repo {
	return &Repo{store: s, claimTTL: claimTTL}
}

// Create stores a new document record.
func (r *Repo) Create(ctx context.Context, doc *domain.Document) error {
	if err := r.store.HSet(ctx, docKey(doc.ID), buildHashFields(doc)); err != nil {
		return fmt.Errorf("hset %s: %w", docKey(doc.ID), err)
	}
	return nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Document, error) {
	m, err := r.store.HGetAll(ctx, docKey(id))
	if err != nil {
		return domain.Document{}, fmt.Errorf("hgetall %s: %w", docKey(id), err)
	}
	if len(m) == 0 {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return parseHashFields(id, m), nil
}

// List returns all documents, newest upload first.
func (r *Repo) List(ctx context.Context) ([]domain.Document, error) {
	keys, err := r.store.Scan(ctx, docKeyPattern())
	if err != nil {
		return nil, fmt.Errorf("scan papers: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall papers: %w", err)
	}

	docs := make([]domain.Document, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		docs = append(docs, parseHashFields(docIDFromKey(keys[i]), m))
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	return docs, nil
}

// Delete removes a document record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	exists, err := r.store.Exists(ctx, docKey(id))
	if err != nil {
		return fmt.Errorf("check exists %s: %w", docKey(id), err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}
	if err := r.store.Del(ctx, docKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", docKey(id), err)
	}
	return nil
}

// MarkProcessing moves a document from pending to processing.
func (r *Repo) MarkProcessing(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.StatusProcessing, map[string]string{
		fieldError: "",
	})
}

// MarkReady moves a document from processing to ready and records counts.
func (r *Repo) MarkReady(ctx context.Context, id string, pageCount, chunkCount int, meta domain.Metadata) error {
	fields := map[string]string{
		fieldError:  "",
		fieldPages:  fmt.Sprintf("%d", pageCount),
		fieldChunks: fmt.Sprintf("%d", chunkCount),
	}
	addMetaFields(fields, meta)
	return r.setStatus(ctx, id, domain.StatusReady, fields)
}

// MarkFailed moves a document to failed with a human-readable detail.
func (r *Repo) MarkFailed(ctx context.Context, id, detail string) error {
	return r.setStatus(ctx, id, domain.StatusFailed, map[string]string{
		fieldError: detail,
	})
}

// MarkPending resets a failed document for re-ingestion.
func (r *Repo) MarkPending(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.StatusPending, map[string]string{
		fieldError: "",
	})
}

// setStatus applies a guarded status transition plus extra hash fields.
func (r *Repo) setStatus(ctx context.Context, id string, to domain.Status, extra map[string]string) error {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanTransition(doc.Status, to) {
		return fmt.Errorf("status %s -> %s not allowed for %s", doc.Status, to, id)
	}

	fields := map[string]string{fieldStatus: string(to)}
	for k, v := range extra {
		fields[k] = v
	}
	if err := r.store.HSet(ctx, docKey(id), fields); err != nil {
		return fmt.Errorf("hset status %s: %w", docKey(id), err)
	}
	return nil
}

// ClaimIngest acquires the ingest claim for a document via SET NX.
// Returns false when another upload already holds the claim.
func (r *Repo) ClaimIngest(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.SetNX(ctx, claimKey(id), []byte("1"), r.claimTTL)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", claimKey(id), err)
	}
	return ok, nil
}

// ReleaseIngest drops the ingest claim once the pipeline reaches a terminal state.
func (r *Repo) ReleaseIngest(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, claimKey(id)); err != nil {
		return fmt.Errorf("release claim %s: %w", claimKey(id), err)
	}
	return nil
}

func docKey(id string) string {
	return domain.KeyPrefix + "paper:" + id
}

func docKeyPattern() string {
	return domain.KeyPrefix + "paper:*"
}

func docIDFromKey(key string) string {
	return key[len(domain.KeyPrefix)+len("paper:"):]
}

func claimKey(id string) string {
	return domain.KeyPrefix + "claim:" + id
}
