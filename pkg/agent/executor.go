package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glassbox-ai/glassbox-workers/pkg/llms"
	"github.com/glassbox-ai/glassbox-workers/pkg/protocol"
	"github.com/glassbox-ai/glassbox-workers/pkg/store"
)

// maxIterations bounds the conversation loop. An execution that never
// completes fails exactly when the counter reaches this cap.
const maxIterations = 20

const maxIterationsMessage = "max iterations reached"

// Store is the persistence capability the engine needs. *store.Store
// satisfies it; tests inject an in-memory fake.
type Store interface {
	GetExecution(ctx context.Context, id string) (*store.Execution, error)
	ControlState(ctx context.Context, id string) (store.ControlSignal, error)
	SaveCheckpoint(ctx context.Context, id string, checkpoint []byte, tokensIn, tokensOut int) error
	UpdateStatus(ctx context.Context, id, status, errorMessage string) error
	AppendEvent(ctx context.Context, ev store.TraceEvent) error
	GetNode(ctx context.Context, id string) (*store.Node, error)
	ListInputs(ctx context.Context, nodeID string) ([]store.NodeInput, error)
	InsertSubnode(ctx context.Context, parentID, title, description, authorType string) (string, error)
	InsertFile(ctx context.Context, orgID, storageKey, bucket, filename, contentType string, sizeBytes int64, metadata map[string]any) (string, error)
	InsertNodeOutput(ctx context.Context, nodeID, outputType, fileID, label string, metadata map[string]any) error
}

// BlobStore is the upload capability used by add_output.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Bucket() string
}

// Executor runs one execution to a terminal or suspended outcome. One
// instance serves one Run call; executions never share an Executor.
type Executor struct {
	store    Store
	blobs    BlobStore
	provider llms.Provider
	logger   *slog.Logger

	executionID string
	node        *store.Node
	state       *State
	tokensIn    int
	tokensOut   int
	summary     string
}

func NewExecutor(st Store, blobs BlobStore, provider llms.Provider, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		store:    st,
		blobs:    blobs,
		provider: provider,
		logger:   logger,
	}
}

// Run drives the execution loop. A nil return means the execution reached a
// terminal or suspended state and the job can be acknowledged; a non-nil
// return means the fault was recorded and the job should be redelivered to
// resume from the last checkpoint.
func (e *Executor) Run(ctx context.Context, nodeID, executionID string) error {
	e.executionID = executionID
	log := e.logger.With("execution_id", executionID, "node_id", nodeID)

	exec, err := e.store.GetExecution(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}
	switch exec.Status {
	case store.StatusComplete, store.StatusCancelled:
		log.Info("Execution already terminal, skipping", "status", exec.Status)
		return nil
	case store.StatusFailed:
		// A failed row with a redelivered job means the previous attempt hit
		// a transient fault. Retry from the last checkpoint.
		log.Info("Retrying failed execution", "error", exec.ErrorMessage)
	case store.StatusRunning:
		// Crash recovery after redelivery leaves the row in running; a
		// concurrent second instance would look identical. Single-writer
		// dispatch upstream makes resume the right call.
		log.Warn("Execution already marked running, resuming from checkpoint")
	}

	e.node, err = e.store.GetNode(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("failed to load node: %w", err)
	}

	resumed := len(exec.Checkpoint) > 0
	if resumed {
		e.state, err = LoadState(exec.Checkpoint)
		if err != nil {
			return e.fail(ctx, log, err)
		}
		e.tokensIn = exec.TotalTokensIn
		e.tokensOut = exec.TotalTokensOut
		e.logEvent(ctx, store.TraceEvent{
			EventType: "execution_resume",
			EventData: map[string]any{"iteration": e.state.Iteration},
		})
	} else {
		e.state = NewState()
		inputs, err := e.store.ListInputs(ctx, nodeID)
		if err != nil {
			return fmt.Errorf("failed to load node inputs: %w", err)
		}
		e.state.Messages = openingTranscript(e.node, inputs)
		e.logEvent(ctx, store.TraceEvent{
			EventType: "execution_start",
			EventData: map[string]any{"title": e.node.Title, "model": e.provider.ModelName()},
		})
	}

	if e.state.CurrentStep == StepComplete {
		log.Info("Checkpoint already complete, finalizing")
		return e.finish(ctx, log)
	}

	if err := e.mergeHumanResponse(ctx); err != nil {
		return e.fail(ctx, log, err)
	}

	if err := e.store.UpdateStatus(ctx, executionID, store.StatusRunning, ""); err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}

	log.Info("Execution loop starting", "iteration", e.state.Iteration, "resumed", resumed)

	for e.state.Iteration < maxIterations {
		proceed, err := e.checkControlSignals(ctx, log)
		if err != nil {
			return e.fail(ctx, log, err)
		}
		if !proceed {
			return nil
		}

		done, err := e.runIteration(ctx, log)
		if err != nil {
			return e.fail(ctx, log, err)
		}
		if done {
			return e.finish(ctx, log)
		}

		e.state.Iteration++
		if err := e.saveCheckpoint(ctx); err != nil {
			return e.fail(ctx, log, err)
		}
	}

	log.Warn("Iteration cap reached", "iterations", e.state.Iteration)
	e.logEvent(ctx, store.TraceEvent{
		EventType: "error",
		EventData: map[string]any{"error": maxIterationsMessage, "iteration": e.state.Iteration},
	})
	if err := e.store.UpdateStatus(ctx, executionID, store.StatusFailed, maxIterationsMessage); err != nil {
		return fmt.Errorf("failed to record iteration-cap failure: %w", err)
	}
	return nil
}

// checkControlSignals probes the execution row for externally-set pause or
// cancel and for a human response injected into the stored checkpoint while
// the run is in flight. Returns false when the loop must stop (signal
// observed).
func (e *Executor) checkControlSignals(ctx context.Context, log *slog.Logger) (bool, error) {
	sig, err := e.store.ControlState(ctx, e.executionID)
	if errors.Is(err, store.ErrNotFound) {
		// Row deleted out from under us: treat as cancellation.
		sig = store.ControlSignal{Status: store.StatusCancelled}
	} else if err != nil {
		return false, fmt.Errorf("status probe failed: %w", err)
	}

	switch sig.Status {
	case store.StatusCancelled:
		// State is discarded on cancel: no checkpoint write.
		log.Info("Execution cancelled")
		e.logEvent(ctx, store.TraceEvent{
			EventType: "execution_cancelled",
			EventData: map[string]any{"iteration": e.state.Iteration},
		})
		return false, nil

	case store.StatusPaused:
		if err := e.saveCheckpoint(ctx); err != nil {
			return false, err
		}
		log.Info("Execution paused")
		// Status stays paused; the row already says so.
		e.logEvent(ctx, store.TraceEvent{
			EventType: "execution_paused",
			EventData: map[string]any{"iteration": e.state.Iteration},
		})
		return false, nil
	}

	if len(sig.HumanInputResponse) > 0 && len(e.state.HumanInputResponse) == 0 {
		// A response answered mid-run (not through the awaiting_input
		// resume path). Consume it before the next model turn so the
		// upcoming checkpoint write doesn't clobber it.
		e.state.HumanInputResponse = sig.HumanInputResponse
	}
	if err := e.mergeHumanResponse(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// mergeHumanResponse appends a pending human answer as a user turn and
// checkpoints immediately so the answer is consumed exactly once.
func (e *Executor) mergeHumanResponse(ctx context.Context) error {
	if len(e.state.HumanInputResponse) == 0 {
		return nil
	}

	response := string(e.state.HumanInputResponse)
	e.state.Messages = append(e.state.Messages,
		protocol.UserMessage("Human response: "+response))
	e.state.HumanInputResponse = nil
	e.state.HumanInputRequest = nil

	e.logEvent(ctx, store.TraceEvent{
		EventType: "human_input_received",
		EventData: map[string]any{"response": response},
	})

	return e.saveCheckpoint(ctx)
}

// runIteration performs one model call and dispatches its tool calls.
// Returns true when the execution completed.
func (e *Executor) runIteration(ctx context.Context, log *slog.Logger) (bool, error) {
	start := time.Now()
	result, err := e.provider.Generate(ctx, e.state.Messages, ToolDefinitions())
	if err != nil {
		return false, fmt.Errorf("gateway call failed: %w", err)
	}
	duration := time.Since(start)

	e.tokensIn += result.Usage.PromptTokens
	e.tokensOut += result.Usage.CompletionTokens

	e.state.Messages = append(e.state.Messages,
		protocol.AssistantMessage(result.Text, result.ToolCalls))

	e.logEvent(ctx, store.TraceEvent{
		EventType:  "llm_call",
		EventData:  map[string]any{"iteration": e.state.Iteration, "tool_calls": len(result.ToolCalls)},
		DurationMs: int(duration.Milliseconds()),
		Model:      e.provider.ModelName(),
		TokensIn:   result.Usage.PromptTokens,
		TokensOut:  result.Usage.CompletionTokens,
	})

	log.Debug("Model turn",
		"iteration", e.state.Iteration,
		"tool_calls", len(result.ToolCalls),
		"duration_ms", duration.Milliseconds())

	if len(result.ToolCalls) == 0 {
		// No tools: a bare mention of completion in the text finishes the
		// run.
		if strings.Contains(strings.ToLower(result.Text), "complete") {
			e.state.CurrentStep = StepComplete
			return true, nil
		}
		return false, nil
	}

	for _, tc := range result.ToolCalls {
		outcome, err := e.dispatchToolCall(ctx, tc)
		if err != nil {
			return false, err
		}

		e.state.Messages = append(e.state.Messages,
			protocol.ToolResultMessage(tc.ID, outcome.result))

		if outcome.humanInputNeeded {
			// Suspend: checkpoint first so the pending request survives,
			// then flip status. Remaining calls in this batch are dropped.
			if err := e.saveCheckpoint(ctx); err != nil {
				return false, err
			}
			e.logEvent(ctx, store.TraceEvent{
				EventType: "awaiting_human_input",
				EventData: map[string]any{"iteration": e.state.Iteration},
			})
			if err := e.store.UpdateStatus(ctx, e.executionID, store.StatusAwaitingInput, ""); err != nil {
				return false, fmt.Errorf("failed to suspend for human input: %w", err)
			}
			log.Info("Awaiting human input")
			return false, errSuspended
		}

		if outcome.completed {
			// Completion short-circuits the rest of the batch.
			return true, nil
		}
	}

	return false, nil
}

// errSuspended is an internal marker: the run stopped cleanly for human
// input and must not be treated as a fault or continue the loop.
var errSuspended = errors.New("suspended for human input")

// finish records terminal completion.
func (e *Executor) finish(ctx context.Context, log *slog.Logger) error {
	e.state.CurrentStep = StepComplete
	if err := e.saveCheckpoint(ctx); err != nil {
		return e.fail(ctx, log, err)
	}

	data := map[string]any{
		"iteration": e.state.Iteration,
		"outputs":   len(e.state.Outputs),
		"subnodes":  len(e.state.SubNodesCreated),
	}
	if e.summary != "" {
		data["summary"] = e.summary
	}
	e.logEvent(ctx, store.TraceEvent{
		EventType: "execution_complete",
		EventData: data,
		TokensIn:  e.tokensIn,
		TokensOut: e.tokensOut,
	})

	if err := e.store.UpdateStatus(ctx, e.executionID, store.StatusComplete, ""); err != nil {
		return fmt.Errorf("failed to mark execution complete: %w", err)
	}

	log.Info("Execution complete",
		"iterations", e.state.Iteration,
		"tokens_in", e.tokensIn,
		"tokens_out", e.tokensOut)
	return nil
}

// fail records the fault and propagates it so the queue redelivers the job.
func (e *Executor) fail(ctx context.Context, log *slog.Logger, cause error) error {
	if errors.Is(cause, errSuspended) {
		return nil
	}

	iteration := 0
	if e.state != nil {
		iteration = e.state.Iteration
	}

	log.Error("Execution failed", "error", cause)
	e.logEvent(ctx, store.TraceEvent{
		EventType: "error",
		EventData: map[string]any{"error": cause.Error(), "iteration": iteration},
	})
	if err := e.store.UpdateStatus(ctx, e.executionID, store.StatusFailed, cause.Error()); err != nil {
		log.Error("Failed to record failure status", "error", err)
	}
	return cause
}

func (e *Executor) saveCheckpoint(ctx context.Context) error {
	blob, err := e.state.Serialize()
	if err != nil {
		return err
	}
	if err := e.store.SaveCheckpoint(ctx, e.executionID, blob, e.tokensIn, e.tokensOut); err != nil {
		return fmt.Errorf("failed to persist checkpoint: %w", err)
	}
	return nil
}

// logEvent appends a trace event; trace failures are logged but never fail
// the execution.
func (e *Executor) logEvent(ctx context.Context, ev store.TraceEvent) {
	ev.ExecutionID = e.executionID
	if err := e.store.AppendEvent(ctx, ev); err != nil {
		e.logger.Error("Failed to append trace event", "event_type", ev.EventType, "error", err)
	}
}
