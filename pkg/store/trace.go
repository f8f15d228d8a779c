package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AppendEvent inserts a trace event with a server-assigned, per-execution
// monotonic sequence number. Executions have a single writer, so the
// MAX+1 subquery cannot race with itself.
func (s *Store) AppendEvent(ctx context.Context, ev TraceEvent) error {
	data := ev.EventData
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agent_trace_events
			(id, execution_id, sequence, event_type, event_data,
			 duration_ms, model, tokens_in, tokens_out, created_at)
		VALUES
			($1, $2,
			 (SELECT COALESCE(MAX(sequence), 0) + 1
			  FROM agent_trace_events WHERE execution_id = $2),
			 $3, $4, NULLIF($5, 0), NULLIF($6, ''), NULLIF($7, 0), NULLIF($8, 0), NOW())`,
		uuid.NewString(), ev.ExecutionID, ev.EventType, string(payload),
		ev.DurationMs, ev.Model, ev.TokensIn, ev.TokensOut)
	if err != nil {
		return fmt.Errorf("failed to append trace event %s: %w", ev.EventType, err)
	}
	return nil
}
