package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dealdesk/dealdesk/internal/history"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, record history.Record) error {
	query := `
INSERT INTO agent_turn (turn_id, question, sql_text, status, attempts, error_reason, row_count, truncated, summary, elapsed_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := s.db.ExecContext(ctx, query,
		record.TurnID,
		record.Question,
		record.SQL,
		record.Status,
		record.Attempts,
		nullableString(record.ErrorReason),
		record.RowCount,
		record.Truncated,
		nullableString(record.Summary),
		record.ElapsedMS,
	); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, turnID string) (history.Record, error) {
	query := `
SELECT turn_id, question, sql_text, status, attempts, error_reason, row_count, truncated, summary, elapsed_ms, created_at
FROM agent_turn
WHERE turn_id = $1`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, turnID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.Record{}, history.ErrNotFound
		}
		return history.Record{}, fmt.Errorf("get turn: %w", err)
	}
	return record, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]history.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT turn_id, question, sql_text, status, attempts, error_reason, row_count, truncated, summary, elapsed_ms, created_at
FROM agent_turn
ORDER BY created_at DESC
LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]history.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (history.Record, error) {
	var record history.Record
	var errorReason sql.NullString
	var summary sql.NullString
	if err := row.Scan(
		&record.TurnID,
		&record.Question,
		&record.SQL,
		&record.Status,
		&record.Attempts,
		&errorReason,
		&record.RowCount,
		&record.Truncated,
		&summary,
		&record.ElapsedMS,
		&record.CreatedAt,
	); err != nil {
		return history.Record{}, err
	}
	record.ErrorReason = errorReason.String
	record.Summary = summary.String
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
