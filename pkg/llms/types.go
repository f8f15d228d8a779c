// Package llms implements chat-completion providers over raw HTTP. Each
// provider translates the neutral transcript types in pkg/protocol to its
// native wire format and back.
package llms

import (
	"context"

	"github.com/glassbox-ai/glassbox-workers/pkg/protocol"
)

// ToolDefinition describes a tool offered to the model. Parameters is a
// JSON Schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage reports token consumption for one generation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Result is one model turn: free text, zero or more tool calls, and usage.
type Result struct {
	Text      string
	ToolCalls []protocol.ToolCall
	Usage     Usage
}

// Provider generates a single assistant turn from a transcript.
type Provider interface {
	Generate(ctx context.Context, messages []protocol.Message, tools []ToolDefinition) (*Result, error)
	ModelName() string
}

// Config holds the per-provider connection settings.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}
