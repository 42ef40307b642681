// Package engine defines the read-only query execution contract. Statements
// reaching an Executor have already passed validation; the executor's own
// obligations are the row ceiling and the wall-clock deadline.
package engine

import (
	"context"
	"fmt"
	"time"
)

// Failure codes surfaced to the repair loop.
const (
	CodeEngineError = "engine-error"
	CodeTimeout     = "timeout"
)

// Result holds the materialized outcome of a successful execution. Rows are
// fully drained before Result is returned, nothing streams past it.
type Result struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	RowCount  int             `json:"row_count"`
	Truncated bool            `json:"row_count_truncated"`
	Duration  time.Duration   `json:"-"`
}

// Failure is an execution error with enough detail for a repair prompt. The
// Message is the database's own error text, passed through verbatim.
type Failure struct {
	Code    string
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

type Executor interface {
	// Execute runs a single read statement. rowLimit caps returned rows;
	// when the underlying query yields more, Result.Truncated is set and
	// exactly rowLimit rows are returned. timeout bounds the whole call.
	Execute(ctx context.Context, sqlText string, rowLimit int, timeout time.Duration) (*Result, *Failure)
}
