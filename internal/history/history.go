// Package history defines the persisted record of completed agent turns.
package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("turn not found")

// Record is the durable shape of a finished turn. Result rows are not
// persisted, only their count; the SQL can always be re-run.
type Record struct {
	TurnID      string    `json:"turn_id"`
	Question    string    `json:"question"`
	SQL         string    `json:"sql"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	ErrorReason string    `json:"error_reason,omitempty"`
	RowCount    int       `json:"row_count"`
	Truncated   bool      `json:"row_count_truncated"`
	Summary     string    `json:"summary,omitempty"`
	ElapsedMS   int64     `json:"elapsed_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	Insert(ctx context.Context, record Record) error
	Get(ctx context.Context, turnID string) (Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
