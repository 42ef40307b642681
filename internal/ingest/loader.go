// Package ingest builds the sales warehouse: it loads the raw CRM extracts
// into DuckDB, indexes the join keys, and defines the curated views the
// agent is steered toward.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dealdesk/dealdesk/internal/salesdb"
	"github.com/dealdesk/dealdesk/internal/storage"
)

// Tables lists the raw CRM extracts in load order.
var Tables = []string{"accounts", "products", "sales_teams", "sales_pipeline", "interactions"}

// keyColumns are indexed on every table that carries them.
var keyColumns = []string{"account_id", "product_id", "opportunity_id", "interaction_id"}

type Loader struct {
	DB     *sql.DB
	Store  storage.ObjectStore
	Logger *slog.Logger
}

// LoadCSVDir replaces each warehouse table from <dir>/<table>.csv. Files are
// read with DuckDB's CSV sniffer so column types follow the data.
func (l *Loader) LoadCSVDir(ctx context.Context, dir string) error {
	for _, table := range Tables {
		file := filepath.Join(dir, table+".csv")
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("source file for table %q: %w", table, err)
		}
		query := fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header=true)`,
			salesdb.QuoteIdent(table), salesdb.QuoteString(file))
		if _, err := l.DB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("load table %q: %w", table, err)
		}
		l.logger().Info("table loaded", "table", table, "source", file)
	}
	return l.createIndexes(ctx)
}

// LoadParquetDir replaces each warehouse table from <dir>/<table>.parquet.
func (l *Loader) LoadParquetDir(ctx context.Context, dir string) error {
	for _, table := range Tables {
		file := filepath.Join(dir, table+".parquet")
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("source file for table %q: %w", table, err)
		}
		query := fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet(%s)`,
			salesdb.QuoteIdent(table), salesdb.QuoteString(file))
		if _, err := l.DB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("load table %q: %w", table, err)
		}
		l.logger().Info("table loaded", "table", table, "source", file)
	}
	return l.createIndexes(ctx)
}

// FetchSources downloads <dataset>/sources/<table>.csv objects into a local
// directory and returns its path, ready for LoadCSVDir.
func (l *Loader) FetchSources(ctx context.Context, dataset string) (string, error) {
	if l.Store == nil {
		return "", fmt.Errorf("object store is not configured")
	}
	dir, err := os.MkdirTemp("", "dealdesk-sources-")
	if err != nil {
		return "", fmt.Errorf("create sources temp dir: %w", err)
	}
	for _, table := range Tables {
		key, err := storage.BuildSourcePath(dataset, table+".csv")
		if err != nil {
			return "", err
		}
		reader, err := l.Store.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("get source %q: %w", key, err)
		}
		localPath := filepath.Join(dir, table+".csv")
		if err := writeFile(localPath, reader); err != nil {
			_ = reader.Close()
			return "", fmt.Errorf("write source %q: %w", localPath, err)
		}
		if err := reader.Close(); err != nil {
			return "", fmt.Errorf("close source %q: %w", key, err)
		}
	}
	return dir, nil
}

func (l *Loader) createIndexes(ctx context.Context) error {
	for _, table := range Tables {
		columns, err := l.tableColumns(ctx, table)
		if err != nil {
			return err
		}
		for _, key := range keyColumns {
			if _, ok := columns[key]; !ok {
				continue
			}
			query := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s)`,
				salesdb.QuoteIdent(fmt.Sprintf("idx_%s_%s", table, key)),
				salesdb.QuoteIdent(table),
				salesdb.QuoteIdent(key))
			if _, err := l.DB.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("index %s.%s: %w", table, key, err)
			}
		}
	}
	return nil
}

func (l *Loader) tableColumns(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := l.DB.QueryContext(ctx, `
SELECT column_name
FROM information_schema.columns
WHERE table_schema = 'main' AND table_name = ?`, table)
	if err != nil {
		return nil, fmt.Errorf("columns for table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		columns[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}
	return columns, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
