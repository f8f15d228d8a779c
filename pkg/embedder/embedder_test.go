package embedder

import (
	"context"
	"strings"
	"testing"
)

func TestEmbedSkipsWithoutAPIKey(t *testing.T) {
	e := NewOpenAI("", "")

	vec, err := e.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("missing configuration must not be an error: %v", err)
	}
	if vec != nil {
		t.Errorf("expected nil vector without API key, got %d dims", len(vec))
	}
}

func TestEmbedSkipsEmptyText(t *testing.T) {
	e := NewOpenAI("key", "")

	vec, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec != nil {
		t.Error("expected nil vector for empty text")
	}
}

func TestNewOpenAIDefaultModel(t *testing.T) {
	e := NewOpenAI("key", "")
	if e.model != "text-embedding-3-small" {
		t.Errorf("unexpected default model: %q", e.model)
	}

	e = NewOpenAI("key", "text-embedding-3-large")
	if e.model != "text-embedding-3-large" {
		t.Errorf("explicit model not honored: %q", e.model)
	}
}

func TestEstimateTruncate(t *testing.T) {
	short := "hello"
	if got := estimateTruncate(short, 10); got != short {
		t.Errorf("short text must pass through: %q", got)
	}

	long := strings.Repeat("a", 100)
	got := estimateTruncate(long, 10)
	if len(got) != 40 {
		t.Errorf("expected 40 chars for 10-token budget, got %d", len(got))
	}

	// Cuts on rune boundaries, not bytes.
	unicode := strings.Repeat("é", 100)
	got = estimateTruncate(unicode, 10)
	if len([]rune(got)) != 40 {
		t.Errorf("expected 40 runes, got %d", len([]rune(got)))
	}
}

func TestTruncateEmptyAndZeroBudget(t *testing.T) {
	tc := NewTokenCounter()
	if got := tc.Truncate("", "text-embedding-3-small", 100); got != "" {
		t.Errorf("empty text must stay empty: %q", got)
	}
	if got := tc.Truncate("text", "text-embedding-3-small", 0); got != "" {
		t.Errorf("zero budget must yield empty text: %q", got)
	}
}
