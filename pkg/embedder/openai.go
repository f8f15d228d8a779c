// Package embedder generates text embeddings for extracted file content.
// Configuration is optional: with no API key the embedder is a no-op and
// files are stored without vectors.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/glassbox-ai/glassbox-workers/pkg/httpclient"
)

const (
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultBaseURL        = "https://api.openai.com/v1"
	maxInputTokens        = 8000
)

type OpenAIEmbedder struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *httpclient.Client
	tokens     *TokenCounter
}

// NewOpenAI builds an embedder. An empty apiKey yields a working value
// whose Embed returns (nil, nil) — embedding is optional by design.
func NewOpenAI(apiKey, model string) *OpenAIEmbedder {
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &OpenAIEmbedder{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: httpclient.New(
			httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
		),
		tokens: NewTokenCounter(),
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text, truncated to the model's
// input budget first. Returns (nil, nil) when no provider is configured or
// the text is empty.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.apiKey == "" || text == "" {
		return nil, nil
	}

	input := e.tokens.Truncate(text, e.model, maxInputTokens)

	payload, err := json.Marshal(embeddingRequest{Model: e.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	return parsed.Data[0].Embedding, nil
}
