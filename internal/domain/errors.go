package domain

import "errors"

var (
	// ErrInvalidInput signals malformed or empty input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentNotReady signals a search against a document that has not finished ingestion.
	ErrDocumentNotReady = errors.New("document not ready")
	// ErrDocumentFailed signals a search against a document whose ingestion failed permanently.
	ErrDocumentFailed = errors.New("document processing failed")
	// ErrIngestQueueFull signals that the ingestion queue cannot accept more work.
	ErrIngestQueueFull = errors.New("ingest queue full")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure after retries.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals an LLM provider failure after retries.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrVectorStoreUnavailable signals a vector store connectivity failure.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
)

// KeyPrefix namespaces every key the service writes to the store.
const KeyPrefix = "paperdex:"
