package answer

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sievelab/paperdex/internal/domain"
)

func TestRenderPrompt_AllModes(t *testing.T) {
	for _, mode := range []string{"", ModeDefault, ModeSummary, ModeTech, ModeCitation} {
		prompt, err := renderPrompt(mode, "", "what is X?", "X is Y.")
		if err != nil {
			t.Fatalf("mode %q: unexpected error: %v", mode, err)
		}
		if !strings.Contains(prompt, "what is X?") {
			t.Errorf("mode %q: question missing", mode)
		}
		if !strings.Contains(prompt, "X is Y.") {
			t.Errorf("mode %q: context missing", mode)
		}
		if strings.Contains(prompt, "{question}") || strings.Contains(prompt, "{context}") {
			t.Errorf("mode %q: unexpanded placeholder", mode)
		}
	}
}

func TestModes_AllResolvable(t *testing.T) {
	for _, mode := range Modes() {
		custom := ""
		if mode == ModeCustom {
			custom = "q: {question} c: {context}"
		}
		if _, err := resolveTemplate(mode, custom); err != nil {
			t.Errorf("mode %q: %v", mode, err)
		}
	}
}

func TestRenderPrompt_UnknownMode(t *testing.T) {
	_, err := renderPrompt("haiku", "", "q", "c")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRenderPrompt_Custom(t *testing.T) {
	prompt, err := renderPrompt(ModeCustom, "ask: {question} given: {context}", "q1", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "ask: q1 given: c1" {
		t.Errorf("unexpected prompt %q", prompt)
	}
}

func TestBuildContext_RespectsBudget(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Seq: 0, Text: strings.Repeat("a", 50)}, Score: 0.9},
		{Chunk: domain.Chunk{Seq: 1, Text: strings.Repeat("b", 50)}, Score: 0.8},
		{Chunk: domain.Chunk{Seq: 2, Text: strings.Repeat("c", 50)}, Score: 0.7},
	}

	text, used := buildContext(chunks, 110)
	if len(used) != 2 {
		t.Fatalf("expected 2 chunks within budget, got %d", len(used))
	}
	if !strings.Contains(text, "\n\n") {
		t.Error("expected separator between chunks")
	}
	if len(text) > 110 {
		t.Errorf("context exceeds budget: %d", len(text))
	}
}

func TestBuildContext_FirstChunkAlwaysIncluded(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Seq: 0, Text: strings.Repeat("x", 500)}, Score: 0.9},
	}

	text, used := buildContext(chunks, 100)
	if len(used) != 1 {
		t.Fatalf("expected the top chunk, got %d", len(used))
	}
	if len(text) != 100 {
		t.Errorf("expected truncation to 100 chars, got %d", len(text))
	}
}

func TestBuildContext_BudgetCountsRunes(t *testing.T) {
	// 50 runes each but 100 bytes each; byte-based accounting would drop the
	// second chunk.
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Seq: 0, Text: strings.Repeat("é", 50)}, Score: 0.9},
		{Chunk: domain.Chunk{Seq: 1, Text: strings.Repeat("ü", 50)}, Score: 0.8},
	}

	text, used := buildContext(chunks, 102)
	if len(used) != 2 {
		t.Fatalf("expected both chunks within a 102-char budget, got %d", len(used))
	}
	if n := utf8.RuneCountInString(text); n != 102 {
		t.Errorf("expected 102 chars, got %d", n)
	}
}

func TestTruncateRunes_NoSplitRune(t *testing.T) {
	s := "héllo wörld"
	got := truncateRunes(s, 3)
	if got != "hél" {
		t.Fatalf("expected 3 runes, got %q", got)
	}
	if truncateRunes(s, 100) != s {
		t.Error("expected passthrough when under the limit")
	}
	for _, r := range got {
		if r == '�' {
			t.Fatal("truncation split a rune")
		}
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("short", 10); got != "short" {
		t.Errorf("expected passthrough, got %q", got)
	}
	long := strings.Repeat("y", 300)
	got := excerpt(long, 200)
	if len([]rune(got)) != 203 {
		t.Errorf("expected 200 runes plus ellipsis, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got[len(got)-5:])
	}
}
