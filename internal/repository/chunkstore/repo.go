// Package chunkstore persists embedded chunks as Redis hashes under an FT
// vector index and serves per-document KNN retrieval.
package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sievelab/paperdex/internal/db"
	"github.com/sievelab/paperdex/internal/domain"
)

// store is the consumer interface for chunk storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	DelMulti(ctx context.Context, keys []string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config describes the chunk vector index.
type Config struct {
	Dim            int
	Algorithm      db.VectorAlgorithm // HNSW or FLAT
	M              int                // HNSW only
	EFConstruction int                // HNSW only
}

// Repo implements the chunk store used by the ingest pipeline and answer service.
type Repo struct {
	store store
	cfg   Config
}

// New creates a chunk store.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// IndexName is the FT index over all chunk hashes.
func IndexName() string {
	return domain.KeyPrefix + "chunks-idx"
}

func chunkKeyPrefix() string {
	return domain.KeyPrefix + "chunk:"
}

func chunkKey(documentID string, seq int) string {
	return fmt.Sprintf("%s%s:%d", chunkKeyPrefix(), documentID, seq)
}

// EnsureIndex creates the chunk index if it does not exist yet. Concurrent
// creation is tolerated: ErrIndexExists is not an error here.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName())
	if err != nil {
		return fmt.Errorf("check index: %w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	if exists {
		return nil
	}

	builder := db.NewIndex(IndexName()).
		Prefix(chunkKeyPrefix()).
		Tag(fieldDoc).
		Numeric(fieldSeq).
		Text(fieldText)

	if r.cfg.Algorithm == db.VectorFlat {
		builder = builder.VectorFlat(fieldVector, r.cfg.Dim, db.DistanceCosine, 0)
	} else {
		builder = builder.VectorHNSW(fieldVector, r.cfg.Dim, db.DistanceCosine, r.cfg.M, r.cfg.EFConstruction)
	}

	def, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	return nil
}

// Replace atomically swaps the chunk set for a document: existing chunks are
// deleted, then the new set is written in one pipelined batch. Readers never
// see the intermediate state because retrieval is gated on document status,
// which flips to ready only after Replace returns.
func (r *Repo) Replace(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if err := r.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	for i, ch := range chunks {
		items[i] = db.HashSetItem{
			Key:    chunkKey(documentID, ch.Seq),
			Fields: buildHashFields(&ch),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write chunks %s: %w: %w", documentID, domain.ErrVectorStoreUnavailable, err)
	}
	return nil
}

// Query returns the top-k chunks of a document by cosine similarity to the
// query vector, highest score first; equal scores tie-break on chunk order.
func (r *Repo) Query(ctx context.Context, documentID string, vector []float32, k int) ([]domain.ScoredChunk, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    IndexName(),
		Filter:       db.TagFilter(fieldDoc, documentID),
		Vector:       vector,
		K:            k,
		// A RETURN clause limits the reply to the named fields, so the score
		// field must be requested explicitly or every hit comes back with
		// score 0.
		ReturnFields: []string{fieldDoc, fieldSeq, fieldText, fieldPageStart, fieldPageEnd, "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w: %w", documentID, domain.ErrVectorStoreUnavailable, err)
	}

	scored := make([]domain.ScoredChunk, 0, len(result.Entries))
	for _, entry := range result.Entries {
		scored = append(scored, parseSearchEntry(entry))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Seq < scored[j].Seq
	})

	return scored, nil
}

// DeleteByDocument removes all chunks belonging to a document.
func (r *Repo) DeleteByDocument(ctx context.Context, documentID string) error {
	keys, err := r.store.Scan(ctx, chunkKeyPrefix()+documentID+":*")
	if err != nil {
		return fmt.Errorf("scan chunks %s: %w: %w", documentID, domain.ErrVectorStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete chunks %s: %w: %w", documentID, domain.ErrVectorStoreUnavailable, err)
	}
	return nil
}
