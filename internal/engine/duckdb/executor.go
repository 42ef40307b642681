// Package duckdb executes validated read statements against the sales
// warehouse database.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dealdesk/dealdesk/internal/engine"
)

type Executor struct {
	DB *sql.DB
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{DB: db}
}

// Execute wraps the statement with a LIMIT of rowLimit+1 so truncation is
// detected without counting the full result, then drains the rows under a
// deadline derived from timeout.
func (e *Executor) Execute(ctx context.Context, sqlText string, rowLimit int, timeout time.Duration) (*engine.Result, *engine.Failure) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return nil, &engine.Failure{Code: engine.CodeEngineError, Message: "sql is required"}
	}

	probeLimit := 0
	if rowLimit > 0 {
		probeLimit = rowLimit + 1
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, probeLimit)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := e.DB.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classify(ctx, err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, classify(ctx, err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, err)
	}

	truncated := false
	if probeLimit > 0 && len(resultRows) == probeLimit {
		truncated = true
		resultRows = resultRows[:rowLimit]
	}

	return &engine.Result{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
		Duration:  time.Since(start),
	}, nil
}

// classify maps a driver error to a Failure. The database's own message is
// kept verbatim so the repair prompt can quote it.
func classify(ctx context.Context, err error) *engine.Failure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &engine.Failure{Code: engine.CodeTimeout, Message: "query exceeded its execution deadline"}
	}
	return &engine.Failure{Code: engine.CodeEngineError, Message: err.Error()}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
