package history

import (
	"context"

	"github.com/dealdesk/dealdesk/internal/agent"
)

// TurnRecorder adapts a Store to the agent's Recorder hook.
type TurnRecorder struct {
	Store Store
}

func (r *TurnRecorder) Record(ctx context.Context, turn agent.Turn) error {
	record := Record{
		TurnID:      turn.ID,
		Question:    turn.Question,
		SQL:         turn.SQL,
		Status:      turn.Status,
		Attempts:    turn.Attempts,
		ErrorReason: turn.ErrorReason,
		Summary:     turn.Summary,
		ElapsedMS:   turn.Elapsed.Milliseconds(),
		CreatedAt:   turn.StartedAt,
	}
	if turn.Result != nil {
		record.RowCount = turn.Result.RowCount
		record.Truncated = turn.Result.Truncated
	}
	return r.Store.Insert(ctx, record)
}
