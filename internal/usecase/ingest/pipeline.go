package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sievelab/paperdex/internal/domain"
	"github.com/sievelab/paperdex/internal/extract"
	"github.com/sievelab/paperdex/internal/metrics"
)

// Pipeline runs the full ingestion of one document: extract, clean, chunk,
// embed, store. It is invoked by pool workers and owns the terminal status
// transition of each task.
type Pipeline struct {
	papers    Repository
	chunks    ChunkStore
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	logger    *zap.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	papers Repository, chunks ChunkStore,
	extractor Extractor, chunker Chunker, embedder Embedder,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		papers:    papers,
		chunks:    chunks,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		logger:    logger,
	}
}

// Run processes one task to a terminal status. The error return is for the
// worker's log only; the document record already reflects the outcome.
func (p *Pipeline) Run(ctx context.Context, task Task) error {
	start := time.Now()
	log := p.logger.With(
		zap.String("document_id", task.DocumentID),
		zap.String("task_id", task.ID),
	)

	if err := p.papers.MarkProcessing(ctx, task.DocumentID); err != nil {
		// Typically a duplicate task whose document already moved on.
		log.Warn("Skip task, document not claimable", zap.Error(err))
		return fmt.Errorf("mark processing: %w", err)
	}

	pageCount, chunkCount, err := p.run(ctx, task)
	duration := time.Since(start)

	// Terminal writes must survive shutdown cancellation.
	bg := context.WithoutCancel(ctx)

	if err != nil {
		metrics.IngestTasksTotal.WithLabelValues("failed").Inc()
		metrics.IngestDuration.WithLabelValues("failed").Observe(duration.Seconds())
		log.Error("Ingestion failed", zap.Duration("duration", duration), zap.Error(err))

		if ferr := p.papers.MarkFailed(bg, task.DocumentID, err.Error()); ferr != nil {
			log.Error("Mark failed", zap.Error(ferr))
		}
		p.release(bg, task.DocumentID, log)
		return err
	}

	metrics.IngestTasksTotal.WithLabelValues("ready").Inc()
	metrics.IngestDuration.WithLabelValues("ready").Observe(duration.Seconds())
	metrics.IngestChunksTotal.Add(float64(chunkCount))
	log.Info("Ingestion completed",
		zap.Duration("duration", duration),
		zap.Int("pages", pageCount),
		zap.Int("chunks", chunkCount),
	)

	p.release(bg, task.DocumentID, log)
	return nil
}

// run performs the pipeline stages and returns page and chunk counts.
func (p *Pipeline) run(ctx context.Context, task Task) (int, int, error) {
	pages, err := p.extractor.Extract(task.Data)
	if err != nil {
		return 0, 0, fmt.Errorf("extract: %w", err)
	}
	if len(pages) == 0 {
		return 0, 0, fmt.Errorf("no extractable text: %w", domain.ErrInvalidInput)
	}

	// Metadata heuristics want the raw first page, before cleaning strips
	// the header lines they key on.
	meta := extract.Metadata(pages[0].Text)

	cleaned := make([]domain.Page, 0, len(pages))
	for _, page := range pages {
		text := extract.Clean(page.Text)
		if text == "" {
			continue
		}
		cleaned = append(cleaned, domain.Page{Number: page.Number, Text: text})
	}
	if len(cleaned) == 0 {
		return 0, 0, fmt.Errorf("no text left after cleaning: %w", domain.ErrInvalidInput)
	}

	chunks, err := p.chunker.Chunk(task.DocumentID, cleaned)
	if err != nil {
		return 0, 0, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return 0, 0, fmt.Errorf("no chunks produced: %w", domain.ErrInvalidInput)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	result, err := p.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(result.Embeddings) != len(chunks) {
		return 0, 0, fmt.Errorf(
			"embedding count mismatch: got %d, want %d", len(result.Embeddings), len(chunks),
		)
	}
	for i := range chunks {
		chunks[i].Vector = result.Embeddings[i]
	}

	if err := p.chunks.Replace(ctx, task.DocumentID, chunks); err != nil {
		return 0, 0, fmt.Errorf("store chunks: %w", err)
	}

	if err := p.papers.MarkReady(ctx, task.DocumentID, len(cleaned), len(chunks), meta); err != nil {
		return 0, 0, fmt.Errorf("mark ready: %w", err)
	}

	return len(cleaned), len(chunks), nil
}

func (p *Pipeline) release(ctx context.Context, id string, log *zap.Logger) {
	if err := p.papers.ReleaseIngest(ctx, id); err != nil {
		log.Warn("Release ingest claim failed", zap.Error(err))
	}
}
