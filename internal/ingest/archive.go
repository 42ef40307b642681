package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dealdesk/dealdesk/internal/salesdb"
	"github.com/dealdesk/dealdesk/internal/storage"
)

// ArchiveEntry describes one uploaded table export.
type ArchiveEntry struct {
	Table string
	Key   string
	Size  int64
}

// Archive exports every warehouse table to parquet and uploads the files
// under the dataset's archive prefix. The capture time stamps all keys so a
// single run forms one coherent snapshot.
func (l *Loader) Archive(ctx context.Context, dataset string) ([]ArchiveEntry, error) {
	if l.Store == nil {
		return nil, fmt.Errorf("object store is not configured")
	}
	workDir, err := os.MkdirTemp("", "dealdesk-archive-")
	if err != nil {
		return nil, fmt.Errorf("create archive temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	capturedAt := time.Now().UTC()
	entries := make([]ArchiveEntry, 0, len(Tables))
	for _, table := range Tables {
		localPath := filepath.Join(workDir, table+".parquet")
		query := fmt.Sprintf(`COPY (SELECT * FROM %s) TO %s (FORMAT PARQUET)`,
			salesdb.QuoteIdent(table), salesdb.QuoteString(localPath))
		if _, err := l.DB.ExecContext(ctx, query); err != nil {
			return nil, fmt.Errorf("export table %q: %w", table, err)
		}

		key, err := storage.BuildArchivePath(dataset, table, capturedAt)
		if err != nil {
			return nil, err
		}
		file, err := os.Open(localPath)
		if err != nil {
			return nil, fmt.Errorf("open export %q: %w", localPath, err)
		}
		stat, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("stat export %q: %w", localPath, err)
		}
		info, err := l.Store.Put(ctx, key, file, stat.Size(), storage.PutOptions{ContentType: "application/octet-stream"})
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("upload archive %q: %w", key, err)
		}
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("close export %q: %w", localPath, err)
		}

		entries = append(entries, ArchiveEntry{Table: table, Key: key, Size: info.Size})
		l.logger().Info("table archived", "table", table, "key", key, "bytes", info.Size)
	}
	return entries, nil
}
