package llms

import (
	"fmt"
	"strings"
)

// NewProvider routes a model identifier to the right provider. Identifiers
// may carry a provider prefix ("anthropic/claude-sonnet-4-20250514",
// "openai/gpt-4o"); bare claude model names route to Anthropic, everything
// else to OpenAI.
func NewProvider(cfg Config) (Provider, error) {
	provider, model := splitModel(cfg.Model)
	cfg.Model = model

	switch provider {
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// Family reports which provider family a model identifier routes to.
func Family(identifier string) string {
	provider, _ := splitModel(identifier)
	return provider
}

func splitModel(identifier string) (provider, model string) {
	if prefix, rest, ok := strings.Cut(identifier, "/"); ok {
		return strings.ToLower(prefix), rest
	}
	if strings.Contains(strings.ToLower(identifier), "claude") {
		return "anthropic", identifier
	}
	return "openai", identifier
}
