package llms

import "testing"

func TestSplitModel(t *testing.T) {
	cases := []struct {
		identifier   string
		wantProvider string
		wantModel    string
	}{
		{"anthropic/claude-sonnet-4-20250514", "anthropic", "claude-sonnet-4-20250514"},
		{"openai/gpt-4o", "openai", "gpt-4o"},
		{"claude-3-5-haiku-latest", "anthropic", "claude-3-5-haiku-latest"},
		{"gpt-4o-mini", "openai", "gpt-4o-mini"},
	}

	for _, tc := range cases {
		provider, model := splitModel(tc.identifier)
		if provider != tc.wantProvider || model != tc.wantModel {
			t.Errorf("splitModel(%q) = (%q, %q), want (%q, %q)",
				tc.identifier, provider, model, tc.wantProvider, tc.wantModel)
		}
	}
}

func TestNewProviderRouting(t *testing.T) {
	p, err := NewProvider(Config{Model: "anthropic/claude-sonnet-4-20250514", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*AnthropicProvider); !ok {
		t.Errorf("expected AnthropicProvider, got %T", p)
	}
	if p.ModelName() != "claude-sonnet-4-20250514" {
		t.Errorf("provider prefix not stripped: %q", p.ModelName())
	}

	p, err = NewProvider(Config{Model: "gpt-4o", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*OpenAIProvider); !ok {
		t.Errorf("expected OpenAIProvider, got %T", p)
	}
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	if _, err := NewProvider(Config{Model: "gpt-4o"}); err == nil {
		t.Error("expected error when API key missing")
	}
}
