package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// GetExecution loads an execution row. Returns ErrNotFound when the row has
// been deleted out from under a running worker.
func (s *Store) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `
		SELECT id, node_id, status, COALESCE(model, ''),
		       langgraph_checkpoint,
		       COALESCE(total_tokens_in, 0), COALESCE(total_tokens_out, 0),
		       COALESCE(error_message, ''),
		       created_at, started_at, completed_at
		FROM agent_executions
		WHERE id = $1`

	var (
		exec       Execution
		checkpoint sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&exec.ID, &exec.NodeID, &exec.Status, &exec.Model,
		&checkpoint,
		&exec.TotalTokensIn, &exec.TotalTokensOut,
		&exec.ErrorMessage,
		&exec.CreatedAt, &exec.StartedAt, &exec.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
	}

	if checkpoint.Valid && checkpoint.String != "" {
		exec.Checkpoint = json.RawMessage(checkpoint.String)
	}

	return &exec, nil
}

// ControlState reads the externally-mutable control fields the engine
// probes every iteration: the status column plus any human response another
// actor has injected into the stored checkpoint while the run is in flight.
func (s *Store) ControlState(ctx context.Context, id string) (ControlSignal, error) {
	var (
		sig      ControlSignal
		response sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT status, langgraph_checkpoint::jsonb -> 'humanInputResponse'
		FROM agent_executions
		WHERE id = $1`, id).Scan(&sig.Status, &response)
	if errors.Is(err, sql.ErrNoRows) {
		return ControlSignal{}, ErrNotFound
	}
	if err != nil {
		return ControlSignal{}, fmt.Errorf("failed to read execution control state: %w", err)
	}

	if response.Valid && response.String != "null" {
		sig.HumanInputResponse = json.RawMessage(response.String)
	}

	return sig, nil
}

// SaveCheckpoint atomically replaces the checkpoint blob and the running
// token totals.
func (s *Store) SaveCheckpoint(ctx context.Context, id string, checkpoint []byte, tokensIn, tokensOut int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE agent_executions
		SET langgraph_checkpoint = $1,
		    total_tokens_in = $2,
		    total_tokens_out = $3
		WHERE id = $4`,
		string(checkpoint), tokensIn, tokensOut, id)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// UpdateStatus transitions the execution. started_at is stamped once on the
// first running transition; completed_at on any terminal transition.
func (s *Store) UpdateStatus(ctx context.Context, id, status, errorMessage string) error {
	var query string
	switch {
	case status == StatusRunning:
		query = `
			UPDATE agent_executions
			SET status = $1,
			    error_message = NULLIF($2, ''),
			    started_at = COALESCE(started_at, NOW())
			WHERE id = $3`
	case IsTerminal(status):
		query = `
			UPDATE agent_executions
			SET status = $1,
			    error_message = NULLIF($2, ''),
			    completed_at = NOW()
			WHERE id = $3`
	default:
		query = `
			UPDATE agent_executions
			SET status = $1,
			    error_message = NULLIF($2, '')
			WHERE id = $3`
	}

	if _, err := s.db.ExecContext(ctx, query, status, errorMessage, id); err != nil {
		return fmt.Errorf("failed to update execution status to %s: %w", status, err)
	}
	return nil
}
