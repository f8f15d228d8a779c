package agent

import (
	"encoding/json"
	"fmt"

	"github.com/glassbox-ai/glassbox-workers/pkg/llms"
	"github.com/glassbox-ai/glassbox-workers/pkg/protocol"
)

// Tool names form a closed set. Dispatch is an exhaustive type switch over
// the decoded argument structs; an unrecognized name only exists at the
// decode boundary.
const (
	toolCreateSubnode     = "create_subnode"
	toolAddOutput         = "add_output"
	toolRequestHumanInput = "request_human_input"
	toolMarkComplete      = "mark_complete"
)

type CreateSubnodeArgs struct {
	Title       string `json:"title" jsonschema:"required,description=Title of the new sub-node"`
	Description string `json:"description,omitempty" jsonschema:"description=Optional description of the work the sub-node covers"`
	AuthorType  string `json:"author_type" jsonschema:"required,enum=agent,enum=human,description=Who should work on the sub-node"`
}

type AddOutputArgs struct {
	Type    string `json:"type" jsonschema:"required,enum=text,enum=structured_data,enum=file,description=Kind of output being added"`
	Content string `json:"content" jsonschema:"required,description=The output content. For structured_data this must be valid JSON"`
	Label   string `json:"label,omitempty" jsonschema:"description=Optional human-readable label for the output"`
}

type RequestHumanInputArgs struct {
	Question string   `json:"question" jsonschema:"required,description=The question to ask the human"`
	Options  []string `json:"options,omitempty" jsonschema:"description=Optional list of suggested answers"`
}

type MarkCompleteArgs struct {
	Summary string `json:"summary" jsonschema:"required,description=Summary of what was accomplished"`
}

// unknownTool marks a tool name outside the catalogue. It is not an error:
// the model receives it as tool output and may self-correct.
type unknownTool struct {
	Name string
}

// decodeToolCall turns a raw model tool call into a typed invocation.
// Undecodable argument payloads are hard errors; unknown names are not.
func decodeToolCall(tc protocol.ToolCall) (any, error) {
	raw := tc.Arguments
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch tc.Name {
	case toolCreateSubnode:
		var args CreateSubnodeArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("malformed %s arguments: %w", tc.Name, err)
		}
		return args, nil
	case toolAddOutput:
		var args AddOutputArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("malformed %s arguments: %w", tc.Name, err)
		}
		return args, nil
	case toolRequestHumanInput:
		var args RequestHumanInputArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("malformed %s arguments: %w", tc.Name, err)
		}
		return args, nil
	case toolMarkComplete:
		var args MarkCompleteArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("malformed %s arguments: %w", tc.Name, err)
		}
		return args, nil
	default:
		return unknownTool{Name: tc.Name}, nil
	}
}

// ToolDefinitions returns the fixed tool catalogue offered on every gateway
// call. The schemas are a wire contract: required fields and enum sets must
// stay exactly as declared on the argument structs.
func ToolDefinitions() []llms.ToolDefinition {
	return []llms.ToolDefinition{
		{
			Name:        toolCreateSubnode,
			Description: "Create a new sub-node under the current node to break the task into smaller units of work.",
			Parameters:  mustSchema[CreateSubnodeArgs](),
		},
		{
			Name:        toolAddOutput,
			Description: "Add an output artifact to the current node. Use structured_data for JSON content.",
			Parameters:  mustSchema[AddOutputArgs](),
		},
		{
			Name:        toolRequestHumanInput,
			Description: "Ask the human a question. Execution pauses until the human responds.",
			Parameters:  mustSchema[RequestHumanInputArgs](),
		},
		{
			Name:        toolMarkComplete,
			Description: "Mark the current node as complete. Call this when the task is finished.",
			Parameters:  mustSchema[MarkCompleteArgs](),
		},
	}
}
