// Package agent implements the resumable agent execution engine: the
// iteration loop that drives a bounded LLM conversation, dispatches the
// fixed tool set, and checkpoints after every iteration so an execution can
// survive crashes, pauses and human-input suspensions.
package agent

import (
	"encoding/json"
	"fmt"

	"github.com/glassbox-ai/glassbox-workers/pkg/protocol"
)

// Step markers for State.CurrentStep.
const (
	StepStart    = "start"
	StepComplete = "complete"
)

// HumanInputRequest is the structured question stored when the model asks
// for human input. The API surfaces it to the workspace UI.
type HumanInputRequest struct {
	RequestType string   `json:"requestType"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
}

// OutputRecord describes one artifact the agent produced.
type OutputRecord struct {
	Type       string `json:"type"`
	Label      string `json:"label,omitempty"`
	StorageKey string `json:"storageKey"`
	SizeBytes  int    `json:"sizeBytes"`
	FileID     string `json:"fileId,omitempty"`
}

// State is the engine's working memory. Its JSON form is the checkpoint
// blob, so field names here are a persistence contract: checkpoints written
// by one version must load in the next.
type State struct {
	Messages           []protocol.Message `json:"messages"`
	Iteration          int                `json:"iteration"`
	Outputs            []OutputRecord     `json:"outputs"`
	SubNodesCreated    []string           `json:"subNodesCreated"`
	CurrentStep        string             `json:"currentStep"`
	HumanInputRequest  *HumanInputRequest `json:"humanInputRequest"`
	HumanInputResponse json.RawMessage    `json:"humanInputResponse"`
}

// NewState returns the state of a fresh execution, before the opening
// transcript is built.
func NewState() *State {
	return &State{
		Outputs:         []OutputRecord{},
		SubNodesCreated: []string{},
		CurrentStep:     StepStart,
	}
}

// LoadState deserializes a checkpoint blob.
func LoadState(checkpoint []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(checkpoint, &state); err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if state.Outputs == nil {
		state.Outputs = []OutputRecord{}
	}
	if state.SubNodesCreated == nil {
		state.SubNodesCreated = []string{}
	}
	if state.CurrentStep == "" {
		state.CurrentStep = StepStart
	}
	return &state, nil
}

// Serialize renders the state as a checkpoint blob.
func (s *State) Serialize() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize state: %w", err)
	}
	return data, nil
}
