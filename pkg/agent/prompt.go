package agent

import (
	"fmt"
	"strings"

	"github.com/glassbox-ai/glassbox-workers/pkg/protocol"
	"github.com/glassbox-ai/glassbox-workers/pkg/store"
)

// openingTranscript builds the fresh-start transcript: a system turn
// describing the task and its inputs, then a user turn kicking it off.
// Providers reject system-only transcripts, so both turns are mandatory.
func openingTranscript(node *store.Node, inputs []store.NodeInput) []protocol.Message {
	var b strings.Builder

	b.WriteString("You are an autonomous agent working on a task in GlassBox, a collaborative workspace.\n\n")
	fmt.Fprintf(&b, "Task: %s\n", node.Title)
	if node.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", node.Description)
	}

	if len(inputs) > 0 {
		b.WriteString("\nInputs provided for this task:\n")
		for _, in := range inputs {
			b.WriteString(renderInput(in))
		}
	}

	b.WriteString(`
You have the following tools:
- create_subnode: break the task into smaller units of work
- add_output: record a result (text, structured JSON data, or file content)
- request_human_input: ask the human a question when you are blocked
- mark_complete: finish the task with a summary

Work step by step. Record concrete results with add_output as you go. When
the task is fully done, call mark_complete with a summary of what you did.`)

	return []protocol.Message{
		protocol.SystemMessage(b.String()),
		protocol.UserMessage(fmt.Sprintf(
			"Please begin working on this task: %s. Use the available tools to complete it.",
			node.Title)),
	}
}

func renderInput(in store.NodeInput) string {
	label := in.Label
	if label == "" {
		label = in.InputType
	}

	switch in.InputType {
	case "file":
		name := in.Filename
		if name == "" {
			name = in.FileID
		}
		if in.ExtractedText != "" {
			return fmt.Sprintf("- %s (file: %s):\n%s\n", label, name, in.ExtractedText)
		}
		return fmt.Sprintf("- %s (file: %s): content not yet extracted\n", label, name)
	case "url":
		return fmt.Sprintf("- %s (url): %s\n", label, in.ExternalURL)
	default:
		return fmt.Sprintf("- %s: %s\n", label, in.TextContent)
	}
}
