package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sievelab/paperdex/internal/domain"
)

// Prompt modes supported by Ask.
const (
	ModeDefault  = "default"
	ModeSummary  = "summary"
	ModeTech     = "tech"
	ModeCitation = "citation"
	ModeCustom   = "custom"
)

// Modes lists the supported prompt modes in presentation order.
func Modes() []string {
	return []string{ModeDefault, ModeSummary, ModeTech, ModeCitation, ModeCustom}
}

// Built-in templates. {question} and {context} are substituted verbatim.
var promptTemplates = map[string]string{
	ModeDefault: `Answer the question "{question}" using only the context below.
If the context does not contain the answer, say so explicitly.

Context:
{context}`,

	ModeSummary: `You are an academic research assistant.
Summarize the following text only in relation to the question: "{question}".

Guidelines:
- Focus strictly on information that answers the question.
- Highlight not just what the authors say, but also why it matters.
- Ignore irrelevant details.
- If the context does not contain enough information, say so explicitly.

Context:
{context}`,

	ModeTech: `You are a technical expert.
Provide a detailed, structured explanation to answer the question: "{question}".

Guidelines:
- Use the provided context as your primary source.
- Start with a concise direct answer.
- Then break down the explanation into sections (Definitions, Methodology, Results, Implications).
- Include equations, numbers, or examples if they appear in the context.
- If the context is insufficient, acknowledge the gap instead of inventing details.

Context:
{context}`,

	ModeCitation: `You are an academic citation assistant.
Find the most relevant citations from the text to support the question: "{question}".

Guidelines:
- Extract direct references, author names, or publication details exactly as given.
- Present results in the format: [Author, Year] or closest possible.
- If no clear citation exists, state: "No relevant citation found in the context."

Context:
{context}`,
}

// renderPrompt resolves the mode template and substitutes the question and
// assembled context.
func renderPrompt(mode, customTemplate, question, context string) (string, error) {
	template, err := resolveTemplate(mode, customTemplate)
	if err != nil {
		return "", err
	}
	return strings.NewReplacer(
		"{question}", question,
		"{context}", context,
	).Replace(template), nil
}

// resolveTemplate validates the mode without touching question or context,
// so invalid requests fail before any provider call.
func resolveTemplate(mode, customTemplate string) (string, error) {
	switch mode {
	case "", ModeDefault, ModeSummary, ModeTech, ModeCitation:
		if mode == "" {
			mode = ModeDefault
		}
		return promptTemplates[mode], nil
	case ModeCustom:
		if strings.TrimSpace(customTemplate) == "" {
			return "", fmt.Errorf("custom mode requires a prompt template: %w", domain.ErrInvalidInput)
		}
		return customTemplate, nil
	default:
		return "", fmt.Errorf("unknown prompt mode %q: %w", mode, domain.ErrInvalidInput)
	}
}

// buildContext joins chunk texts in retrieval order until the character
// budget is spent, returning the assembled context and the chunks that made
// it in. The top chunk always fits, truncated if needed.
func buildContext(chunks []domain.ScoredChunk, maxChars int) (string, []domain.ScoredChunk) {
	var sb strings.Builder
	var used []domain.ScoredChunk
	spent := 0

	for _, ch := range chunks {
		text := ch.Text
		size := utf8.RuneCountInString(text)
		sep := 0
		if len(used) > 0 {
			sep = 2
		}
		if spent+sep+size > maxChars {
			if len(used) > 0 {
				break
			}
			text = truncateRunes(text, maxChars)
			size = utf8.RuneCountInString(text)
		}
		if sep > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
		spent += sep + size
		used = append(used, ch)
	}

	return sb.String(), used
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
