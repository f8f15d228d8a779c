package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glassbox-ai/glassbox-workers/pkg/protocol"
)

func TestAnthropicGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header: %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("unexpected version header: %q", got)
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.System != "You are helpful." {
			t.Errorf("system turn not lifted: %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "I'll create that node."},
				{"type": "tool_use", "id": "toolu_1", "name": "create_subnode", "input": {"title": "Research", "author_type": "agent"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 30, "output_tokens": 15}
		}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{Model: "claude-sonnet-4-20250514", APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := provider.Generate(context.Background(), []protocol.Message{
		protocol.SystemMessage("You are helpful."),
		protocol.UserMessage("Create a research node"),
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Text != "I'll create that node." {
		t.Errorf("unexpected text: %q", result.Text)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	if result.ToolCalls[0].Name != "create_subnode" {
		t.Errorf("unexpected tool name: %q", result.ToolCalls[0].Name)
	}

	var args map[string]string
	if err := json.Unmarshal(result.ToolCalls[0].Arguments, &args); err != nil {
		t.Fatalf("tool input not valid JSON: %v", err)
	}
	if args["title"] != "Research" {
		t.Errorf("unexpected tool input: %v", args)
	}

	if result.Usage.PromptTokens != 30 || result.Usage.CompletionTokens != 15 {
		t.Errorf("unexpected usage: %+v", result.Usage)
	}
}

func TestAnthropicToolResultBecomesUserTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		if len(req.Messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(req.Messages))
		}

		assistant := req.Messages[1]
		if assistant.Role != "assistant" {
			t.Errorf("expected assistant turn, got %q", assistant.Role)
		}
		var sawToolUse bool
		for _, block := range assistant.Content {
			if block.Type == "tool_use" && block.ID == "toolu_2" {
				sawToolUse = true
			}
		}
		if !sawToolUse {
			t.Errorf("tool_use block missing from assistant turn: %+v", assistant.Content)
		}

		toolResult := req.Messages[2]
		if toolResult.Role != "user" {
			t.Errorf("tool result must be a user turn, got %q", toolResult.Role)
		}
		if len(toolResult.Content) != 1 || toolResult.Content[0].Type != "tool_result" ||
			toolResult.Content[0].ToolUseID != "toolu_2" {
			t.Errorf("unexpected tool_result block: %+v", toolResult.Content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content": [{"type": "text", "text": "done"}], "stop_reason": "end_turn", "usage": {"input_tokens": 1, "output_tokens": 1}}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{Model: "claude-sonnet-4-20250514", APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := []protocol.Message{
		protocol.UserMessage("Add an output"),
		protocol.AssistantMessage("Adding now.", []protocol.ToolCall{{
			ID: "toolu_2", Name: "add_output", Arguments: json.RawMessage(`{"type":"text","content":"hi"}`),
		}}),
		protocol.ToolResultMessage("toolu_2", "Added text output"),
	}

	if _, err := provider.Generate(context.Background(), messages, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnthropicErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "max_tokens required"}}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{Model: "claude-sonnet-4-20250514", APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = provider.Generate(context.Background(), []protocol.Message{protocol.UserMessage("Hi")}, nil)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}
