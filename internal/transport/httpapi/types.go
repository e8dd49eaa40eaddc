package httpapi

import "time"

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest             = "bad_request"
	codeValidationFailed       = "validation_failed"
	codeUnauthorized           = "unauthorized"
	codeDocumentNotFound       = "document_not_found"
	codeDocumentNotReady       = "document_not_ready"
	codeDocumentFailed         = "document_failed"
	codeEmbeddingQuotaExceeded = "embedding_quota_exceeded"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeLLMProviderError       = "llm_provider_error"
	codeVectorStoreUnavailable = "vector_store_unavailable"
	codeIngestQueueFull        = "ingest_queue_full"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type uploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
}

type metadataResponse struct {
	Title    string `json:"title,omitempty"`
	Authors  string `json:"authors,omitempty"`
	Abstract string `json:"abstract,omitempty"`
	Year     int    `json:"year,omitempty"`
	ArxivID  string `json:"arxiv_id,omitempty"`
	DOI      string `json:"doi,omitempty"`
}

type paperResponse struct {
	DocumentID string            `json:"document_id"`
	Filename   string            `json:"filename"`
	UploadedAt time.Time         `json:"uploaded_at"`
	Status     string            `json:"status"`
	Error      *string           `json:"error,omitempty"`
	PageCount  int               `json:"page_count"`
	ChunkCount int               `json:"chunk_count"`
	Meta       *metadataResponse `json:"metadata,omitempty"`
}

type paperListResponse struct {
	Items []paperResponse `json:"items"`
	Total int             `json:"total"`
}

type searchRequest struct {
	Question     string `json:"question"`
	TopK         int    `json:"top_k,omitempty"`
	Mode         string `json:"mode,omitempty"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

type sourceItem struct {
	ChunkID   string  `json:"chunk_id"`
	Seq       int     `json:"seq"`
	Excerpt   string  `json:"excerpt"`
	Score     float64 `json:"score"`
	PageStart int     `json:"page_start"`
	PageEnd   int     `json:"page_end"`
}

type searchResponse struct {
	Answer  string       `json:"answer"`
	Model   string       `json:"model"`
	Sources []sourceItem `json:"sources"`
}

type promptModesResponse struct {
	Modes []string `json:"modes"`
}

type statsResponse struct {
	TotalPapers    int            `json:"total_papers"`
	TotalChunks    int            `json:"total_chunks"`
	TotalPages     int            `json:"total_pages"`
	StatusCounts   map[string]int `json:"status_counts"`
	EmbeddingModel string         `json:"embedding_model"`
	IndexStatus    string         `json:"index_status"`
}

type rebuildResponse struct {
	Status  string `json:"status"`
	Deleted int    `json:"deleted"`
}

type periodUsageResponse struct {
	Limit     int64     `json:"tokens_limit"`
	Used      int64     `json:"tokens_used"`
	Remaining int64     `json:"tokens_remaining"`
	Exhausted bool      `json:"is_exhausted"`
	ResetsAt  time.Time `json:"resets_at"`
}

type usageResponse struct {
	Daily   periodUsageResponse `json:"daily"`
	Monthly periodUsageResponse `json:"monthly"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
