package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/glassbox-ai/glassbox-workers/pkg/protocol"
	"github.com/glassbox-ai/glassbox-workers/pkg/storage"
	"github.com/glassbox-ai/glassbox-workers/pkg/store"
)

// toolOutcome carries a dispatched tool's result text plus the two control
// signals the loop reacts to.
type toolOutcome struct {
	result           string
	humanInputNeeded bool
	completed        bool
}

// dispatchToolCall decodes and executes one tool call. Side effects land
// before the result is returned, so a crash between dispatch and checkpoint
// can replay an effect on resume; delivery is at-least-once by design.
func (e *Executor) dispatchToolCall(ctx context.Context, tc protocol.ToolCall) (toolOutcome, error) {
	invocation, err := decodeToolCall(tc)
	if err != nil {
		return toolOutcome{}, err
	}

	arguments := tc.Arguments
	if len(arguments) == 0 {
		arguments = json.RawMessage("{}")
	}
	e.logEvent(ctx, store.TraceEvent{
		EventType: "tool_call",
		EventData: map[string]any{"tool": tc.Name, "arguments": arguments, "iteration": e.state.Iteration},
	})

	switch args := invocation.(type) {
	case CreateSubnodeArgs:
		return e.createSubnode(ctx, args)
	case AddOutputArgs:
		return e.addOutput(ctx, args)
	case RequestHumanInputArgs:
		return e.requestHumanInput(ctx, args)
	case MarkCompleteArgs:
		return e.markComplete(ctx, args)
	case unknownTool:
		return toolOutcome{result: "Unknown tool: " + args.Name}, nil
	default:
		return toolOutcome{}, fmt.Errorf("unhandled tool invocation type %T", invocation)
	}
}

func (e *Executor) createSubnode(ctx context.Context, args CreateSubnodeArgs) (toolOutcome, error) {
	id, err := e.store.InsertSubnode(ctx, e.node.ID, args.Title, args.Description, args.AuthorType)
	if err != nil {
		return toolOutcome{}, err
	}

	e.state.SubNodesCreated = append(e.state.SubNodesCreated, id)

	e.logEvent(ctx, store.TraceEvent{
		EventType: "subnode_created",
		EventData: map[string]any{"subnode_id": id, "title": args.Title, "author_type": args.AuthorType},
	})

	return toolOutcome{result: fmt.Sprintf("Created sub-node: %s (id: %s)", args.Title, id)}, nil
}

func (e *Executor) addOutput(ctx context.Context, args AddOutputArgs) (toolOutcome, error) {
	// structured_data must be valid JSON before any side effect happens.
	if args.Type == "structured_data" && !json.Valid([]byte(args.Content)) {
		return toolOutcome{}, fmt.Errorf("structured_data output content is not valid JSON")
	}

	content := []byte(args.Content)
	contentType := storage.OutputContentType(args.Type)
	key := storage.OutputKey(e.node.OrgID, e.executionID, args.Type, storage.OutputExtension(args.Type))

	err := e.blobs.Upload(ctx, key, content, contentType, map[string]string{
		"execution_id": e.executionID,
		"node_id":      e.node.ID,
		"output_type":  args.Type,
	})
	if err != nil {
		return toolOutcome{}, fmt.Errorf("failed to store output: %w", err)
	}

	metadata := map[string]any{
		"execution_id": e.executionID,
		"node_id":      e.node.ID,
		"output_type":  args.Type,
	}
	fileID, err := e.store.InsertFile(ctx, e.node.OrgID, key, e.blobs.Bucket(),
		path.Base(key), contentType, int64(len(content)), metadata)
	if err != nil {
		return toolOutcome{}, fmt.Errorf("failed to record output file: %w", err)
	}

	label := args.Label
	if label == "" {
		label = args.Type
	}
	if err := e.store.InsertNodeOutput(ctx, e.node.ID, args.Type, fileID, label, metadata); err != nil {
		return toolOutcome{}, fmt.Errorf("failed to record node output: %w", err)
	}

	e.state.Outputs = append(e.state.Outputs, OutputRecord{
		Type:       args.Type,
		Label:      label,
		StorageKey: key,
		SizeBytes:  len(content),
		FileID:     fileID,
	})

	e.logEvent(ctx, store.TraceEvent{
		EventType: "output_added",
		EventData: map[string]any{
			"storage_key": key,
			"size_bytes":  len(content),
			"type":        args.Type,
			"label":       label,
		},
	})

	return toolOutcome{result: fmt.Sprintf("Added output: %s (stored in S3)", label)}, nil
}

func (e *Executor) requestHumanInput(ctx context.Context, args RequestHumanInputArgs) (toolOutcome, error) {
	e.state.HumanInputRequest = &HumanInputRequest{
		RequestType: "question",
		Prompt:      args.Question,
		Options:     args.Options,
	}

	e.logEvent(ctx, store.TraceEvent{
		EventType: "human_input_requested",
		EventData: map[string]any{"question": args.Question, "options": args.Options},
	})

	return toolOutcome{
		result:           "Human input requested. Execution will pause until input is provided.",
		humanInputNeeded: true,
	}, nil
}

func (e *Executor) markComplete(_ context.Context, args MarkCompleteArgs) (toolOutcome, error) {
	e.state.CurrentStep = StepComplete
	e.summary = args.Summary

	return toolOutcome{
		result:    "Node marked as complete: " + args.Summary,
		completed: true,
	}, nil
}
