package domain

import "context"

// LLM generates an answer from an assembled prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (Completion, error)
}

// Completion is the LLM output with token usage.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
