package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sievelab/paperdex/internal/domain"
)

// Retrieval and prompt assembly defaults; overridable via With setters.
const (
	DefaultTopK            = 5
	DefaultMaxTopK         = 20
	DefaultMaxContextChars = 8000

	excerptRunes = 200
)

// NoAnswerText is returned without an LLM call when retrieval finds nothing.
const NoAnswerText = "No relevant passages found in the document."

// Options tune a single Ask call.
type Options struct {
	TopK         int
	Mode         string
	CustomPrompt string
}

// Service answers questions about a single ready document: embed the
// question, retrieve top-K chunks, assemble a bounded prompt, generate.
type Service struct {
	papers          DocumentReader
	chunks          Retriever
	embedder        Embedder
	llm             LLM
	defaultTopK     int
	maxTopK         int
	maxContextChars int
	logger          *zap.Logger
}

// New creates an answer service.
func New(papers DocumentReader, chunks Retriever, embedder Embedder, llm LLM, logger *zap.Logger) *Service {
	return &Service{
		papers:          papers,
		chunks:          chunks,
		embedder:        embedder,
		llm:             llm,
		defaultTopK:     DefaultTopK,
		maxTopK:         DefaultMaxTopK,
		maxContextChars: DefaultMaxContextChars,
		logger:          logger,
	}
}

// WithRetrieval configures the default and maximum top-K.
func (s *Service) WithRetrieval(defaultTopK, maxTopK int) *Service {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// WithContextBudget configures the prompt context budget in characters.
func (s *Service) WithContextBudget(chars int) *Service {
	if chars > 0 {
		s.maxContextChars = chars
	}
	return s
}

// Ask answers a question about one document. The document must be ready:
// pending and processing refuse with ErrDocumentNotReady, failed refuses
// with ErrDocumentFailed carrying the stored detail.
func (s *Service) Ask(ctx context.Context, documentID, question string, opts Options) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}

	// Fail on a bad mode before spending an embedding call.
	if _, err := resolveTemplate(opts.Mode, opts.CustomPrompt); err != nil {
		return domain.Answer{}, err
	}

	doc, err := s.papers.Get(ctx, documentID)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("get document: %w", err)
	}
	switch doc.Status {
	case domain.StatusReady:
	case domain.StatusFailed:
		return domain.Answer{}, fmt.Errorf("ingestion failed: %s: %w", doc.Error, domain.ErrDocumentFailed)
	default:
		return domain.Answer{}, fmt.Errorf("document is %s: %w", doc.Status, domain.ErrDocumentNotReady)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	embResult, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed question: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	scored, err := s.chunks.Query(ctx, documentID, embResult.Embedding, topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve chunks: %w", err)
	}
	if len(scored) == 0 {
		s.logger.Debug("No chunks retrieved", zap.String("document_id", documentID))
		return domain.Answer{Text: NoAnswerText}, nil
	}

	contextText, used := buildContext(scored, s.maxContextChars)
	prompt, err := renderPrompt(opts.Mode, opts.CustomPrompt, question, contextText)
	if err != nil {
		return domain.Answer{}, err
	}

	completion, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(completion.TotalTokens)

	s.logger.Debug("Answer generated",
		zap.String("document_id", documentID),
		zap.Int("retrieved", len(scored)),
		zap.Int("in_context", len(used)),
		zap.Int("prompt_chars", len(prompt)),
		zap.String("model", completion.Model),
	)

	return domain.Answer{
		Text:    completion.Text,
		Model:   completion.Model,
		Sources: sources(used),
	}, nil
}

// sources converts the chunks that entered the prompt into answer references.
func sources(chunks []domain.ScoredChunk) []domain.Source {
	out := make([]domain.Source, len(chunks))
	for i, ch := range chunks {
		out[i] = domain.Source{
			ChunkID:   domain.ChunkID(ch.DocumentID, ch.Seq),
			Seq:       ch.Seq,
			Excerpt:   excerpt(ch.Text, excerptRunes),
			Score:     ch.Score,
			PageStart: ch.PageStart,
			PageEnd:   ch.PageEnd,
		}
	}
	return out
}

// excerpt returns the first n runes of text, with an ellipsis when cut.
func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
