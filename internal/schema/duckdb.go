package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dealdesk/dealdesk/internal/salesdb"
)

const sampleValueMaxChars = 50

// noteColumns are free-text fields whose contents are too long and too
// sensitive to surface as prompt examples.
var noteColumns = map[string]struct{}{
	"comment":     {},
	"description": {},
	"notes":       {},
}

type DuckDBIntrospector struct {
	DB *sql.DB
	// ViewsOnly restricts the namespace to the curated domain views.
	ViewsOnly bool
	// SampleValues caps the distinct example values captured per column.
	// Zero disables sampling.
	SampleValues int

	now func() time.Time
}

func (i *DuckDBIntrospector) Introspect(ctx context.Context) (Descriptor, error) {
	if i.DB == nil {
		return Descriptor{}, fmt.Errorf("db handle is required")
	}

	rows, err := i.DB.QueryContext(ctx, `
SELECT table_name, table_type
FROM information_schema.tables
WHERE table_schema = 'main'
ORDER BY table_name`)
	if err != nil {
		return Descriptor{}, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type tableEntry struct {
		name string
		kind ObjectKind
	}
	entries := make([]tableEntry, 0)
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return Descriptor{}, fmt.Errorf("scan table row: %w", err)
		}
		kind := KindTable
		if strings.EqualFold(tableType, "VIEW") {
			kind = KindView
		}
		if i.ViewsOnly && kind != KindView {
			continue
		}
		entries = append(entries, tableEntry{name: name, kind: kind})
	}
	if err := rows.Err(); err != nil {
		return Descriptor{}, fmt.Errorf("iterate tables: %w", err)
	}

	// Views carry the curated domain semantics, so they lead the namespace.
	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].kind != entries[b].kind {
			return entries[a].kind == KindView
		}
		return entries[a].name < entries[b].name
	})

	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		columns, err := i.introspectColumns(ctx, entry.name)
		if err != nil {
			return Descriptor{}, err
		}
		objects = append(objects, Object{Name: entry.name, Kind: entry.kind, Columns: columns})
	}

	capturedAt := time.Now().UTC()
	if i.now != nil {
		capturedAt = i.now()
	}
	return Descriptor{Objects: objects, CapturedAt: capturedAt}, nil
}

func (i *DuckDBIntrospector) introspectColumns(ctx context.Context, tableName string) ([]Column, error) {
	rows, err := i.DB.QueryContext(ctx, `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = 'main' AND table_name = ?
ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, fmt.Errorf("list columns for %q: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]Column, 0)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columns = append(columns, Column{
			Name:     name,
			Type:     dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns for %q: %w", tableName, err)
	}

	if i.SampleValues > 0 {
		for idx := range columns {
			if _, skip := noteColumns[strings.ToLower(columns[idx].Name)]; skip {
				continue
			}
			samples, err := i.sampleColumn(ctx, tableName, columns[idx].Name)
			if err != nil {
				// Sampling is best effort; a column that cannot be sampled
				// still appears in the descriptor.
				continue
			}
			columns[idx].Samples = samples
		}
	}
	return columns, nil
}

func (i *DuckDBIntrospector) sampleColumn(ctx context.Context, tableName, columnName string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL LIMIT %s`,
		salesdb.QuoteIdent(columnName),
		salesdb.QuoteIdent(tableName),
		salesdb.QuoteIdent(columnName),
		strconv.Itoa(i.SampleValues),
	)
	rows, err := i.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	samples := make([]string, 0, i.SampleValues)
	for rows.Next() {
		var value any
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		samples = append(samples, renderSample(value))
	}
	return samples, rows.Err()
}

func renderSample(value any) string {
	var text string
	switch typed := value.(type) {
	case []byte:
		text = string(typed)
	case time.Time:
		text = typed.Format("2006-01-02")
	default:
		text = fmt.Sprintf("%v", typed)
	}
	if len(text) > sampleValueMaxChars {
		return text[:sampleValueMaxChars] + "..."
	}
	return text
}
