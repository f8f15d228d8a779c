package embedder

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackCharsPerToken = 4

// TokenCounter truncates embedding input to a token budget. Encodings are
// cached per model; when an encoding cannot be initialized (offline
// environments), a chars-per-token estimate keeps the pipeline moving.
type TokenCounter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{encodings: map[string]*tiktoken.Tiktoken{}}
}

func (tc *TokenCounter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	tc.mu.RLock()
	enc, ok := tc.encodings[model]
	tc.mu.RUnlock()
	if ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	tc.mu.Lock()
	tc.encodings[model] = enc
	tc.mu.Unlock()
	return enc, nil
}

// Truncate cuts text down to at most maxTokens tokens for the given model.
func (tc *TokenCounter) Truncate(text, model string, maxTokens int) string {
	if text == "" || maxTokens <= 0 {
		return ""
	}

	enc, err := tc.encodingFor(model)
	if err != nil {
		return estimateTruncate(text, maxTokens)
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

// estimateTruncate approximates the token budget at four characters per
// token, cutting on a rune boundary.
func estimateTruncate(text string, maxTokens int) string {
	limit := maxTokens * fallbackCharsPerToken
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
