package store

import (
	"encoding/json"
	"time"
)

// Execution statuses. pending and running are live; paused and
// awaiting_input are suspended; complete, failed and cancelled are terminal.
const (
	StatusPending       = "pending"
	StatusRunning       = "running"
	StatusPaused        = "paused"
	StatusAwaitingInput = "awaiting_input"
	StatusComplete      = "complete"
	StatusFailed        = "failed"
	StatusCancelled     = "cancelled"
)

// IsTerminal reports whether a status ends the execution for good.
func IsTerminal(status string) bool {
	switch status {
	case StatusComplete, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Execution is one row of agent_executions. Checkpoint is the opaque
// engine-owned state blob; nil when no checkpoint has been written yet.
type Execution struct {
	ID                 string
	NodeID             string
	Status             string
	Model              string
	Checkpoint         json.RawMessage
	TotalTokensIn  int
	TotalTokensOut int
	ErrorMessage   string
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// ControlSignal is what the engine's per-iteration probe reads: the status
// an external actor may have flipped, and any human response injected into
// the checkpoint mid-run.
type ControlSignal struct {
	Status             string
	HumanInputResponse json.RawMessage
}

// TraceEvent is one append-only trace row. Sequence is assigned by the
// store at insert time.
type TraceEvent struct {
	ExecutionID string
	EventType   string
	EventData   map[string]any
	DurationMs  int
	Model       string
	TokensIn    int
	TokensOut   int
}

// Node is the task unit an execution works on.
type Node struct {
	ID          string
	OrgID       string
	ProjectID   string
	ParentID    string
	Title       string
	Description string
	AuthorType  string
	Status      string
}

// NodeInput is one attached input, ordered by sort_order. ExtractedText is
// populated from the joined file row for file inputs.
type NodeInput struct {
	InputType     string
	Label         string
	TextContent   string
	ExternalURL   string
	FileID        string
	Filename      string
	ExtractedText string
}

// FileRecord is one row of files.
type FileRecord struct {
	ID               string
	OrgID            string
	StorageKey       string
	StorageBucket    string
	Filename         string
	ContentType      string
	SizeBytes        int64
	ProcessingStatus string
}
