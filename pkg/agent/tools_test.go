package agent

import (
	"encoding/json"
	"testing"

	"github.com/glassbox-ai/glassbox-workers/pkg/protocol"
)

func schemaFor(t *testing.T, name string) map[string]any {
	t.Helper()
	for _, def := range ToolDefinitions() {
		if def.Name == name {
			return def.Parameters
		}
	}
	t.Fatalf("tool %s not in catalogue", name)
	return nil
}

func requiredFields(t *testing.T, schema map[string]any) map[string]bool {
	t.Helper()
	out := map[string]bool{}
	required, _ := schema["required"].([]any)
	for _, field := range required {
		out[field.(string)] = true
	}
	return out
}

func enumValues(t *testing.T, schema map[string]any, property string) []string {
	t.Helper()
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %v", schema)
	}
	prop, ok := props[property].(map[string]any)
	if !ok {
		t.Fatalf("property %s missing: %v", property, props)
	}
	enum, _ := prop["enum"].([]any)
	var out []string
	for _, v := range enum {
		out = append(out, v.(string))
	}
	return out
}

func TestToolCatalogue(t *testing.T) {
	defs := ToolDefinitions()
	if len(defs) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(defs))
	}

	names := map[string]bool{}
	for _, def := range defs {
		names[def.Name] = true
		if def.Description == "" {
			t.Errorf("tool %s has no description", def.Name)
		}
		if def.Parameters["type"] != "object" {
			t.Errorf("tool %s schema is not an object: %v", def.Name, def.Parameters)
		}
	}
	for _, want := range []string{"create_subnode", "add_output", "request_human_input", "mark_complete"} {
		if !names[want] {
			t.Errorf("tool %s missing from catalogue", want)
		}
	}
}

func TestCreateSubnodeSchema(t *testing.T) {
	schema := schemaFor(t, "create_subnode")

	required := requiredFields(t, schema)
	if !required["title"] || !required["author_type"] {
		t.Errorf("title and author_type must be required: %v", required)
	}
	if required["description"] {
		t.Error("description must be optional")
	}

	enum := enumValues(t, schema, "author_type")
	if len(enum) != 2 || enum[0] != "agent" || enum[1] != "human" {
		t.Errorf("author_type enum must be exactly [agent human], got %v", enum)
	}
}

func TestAddOutputSchema(t *testing.T) {
	schema := schemaFor(t, "add_output")

	required := requiredFields(t, schema)
	if !required["type"] || !required["content"] {
		t.Errorf("type and content must be required: %v", required)
	}
	if required["label"] {
		t.Error("label must be optional")
	}

	enum := enumValues(t, schema, "type")
	want := []string{"text", "structured_data", "file"}
	if len(enum) != len(want) {
		t.Fatalf("type enum must be exactly %v, got %v", want, enum)
	}
	for i := range want {
		if enum[i] != want[i] {
			t.Errorf("type enum must be exactly %v, got %v", want, enum)
		}
	}
}

func TestRequestHumanInputSchema(t *testing.T) {
	schema := schemaFor(t, "request_human_input")

	required := requiredFields(t, schema)
	if !required["question"] {
		t.Error("question must be required")
	}
	if required["options"] {
		t.Error("options must be optional")
	}

	props := schema["properties"].(map[string]any)
	options := props["options"].(map[string]any)
	if options["type"] != "array" {
		t.Errorf("options must be an array: %v", options)
	}
}

func TestMarkCompleteSchema(t *testing.T) {
	schema := schemaFor(t, "mark_complete")

	required := requiredFields(t, schema)
	if !required["summary"] {
		t.Error("summary must be required")
	}
}

func TestDecodeToolCall(t *testing.T) {
	inv, err := decodeToolCall(protocol.ToolCall{
		Name:      "create_subnode",
		Arguments: json.RawMessage(`{"title":"Research","author_type":"agent"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args, ok := inv.(CreateSubnodeArgs)
	if !ok {
		t.Fatalf("expected CreateSubnodeArgs, got %T", inv)
	}
	if args.Title != "Research" || args.AuthorType != "agent" {
		t.Errorf("unexpected args: %+v", args)
	}
}

func TestDecodeUnknownToolIsNotAnError(t *testing.T) {
	inv, err := decodeToolCall(protocol.ToolCall{Name: "rm_rf", Arguments: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("unknown names decode to a value, not an error: %v", err)
	}
	unknown, ok := inv.(unknownTool)
	if !ok {
		t.Fatalf("expected unknownTool, got %T", inv)
	}
	if unknown.Name != "rm_rf" {
		t.Errorf("unexpected name: %q", unknown.Name)
	}
}

func TestDecodeMalformedArgumentsIsHardError(t *testing.T) {
	_, err := decodeToolCall(protocol.ToolCall{
		Name:      "mark_complete",
		Arguments: json.RawMessage(`{"summary":`),
	})
	if err == nil {
		t.Fatal("malformed arguments must be a hard error")
	}
}

func TestDecodeEmptyArgumentsDefaultsToEmptyObject(t *testing.T) {
	inv, err := decodeToolCall(protocol.ToolCall{Name: "mark_complete"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := inv.(MarkCompleteArgs); !ok {
		t.Fatalf("expected MarkCompleteArgs, got %T", inv)
	}
}
