package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/ingest"
	"github.com/dealdesk/dealdesk/internal/observability"
	"github.com/dealdesk/dealdesk/internal/salesdb"
	"github.com/dealdesk/dealdesk/internal/storage"
	s3store "github.com/dealdesk/dealdesk/internal/storage/s3"
)

func main() {
	csvDir := flag.String("csv", "", "directory of source CSV files, one per table")
	parquetDir := flag.String("parquet", "", "directory of source parquet files, one per table")
	fetch := flag.Bool("fetch", false, "download source files from the object store first")
	dataset := flag.String("dataset", "crm", "dataset prefix in the object store")
	archive := flag.Bool("archive", false, "archive the loaded tables to the object store as parquet")
	skipViews := flag.Bool("skip-views", false, "do not recreate the domain views after loading")
	flag.Parse()

	cfg, err := config.LoadFromEnv("dealdesk-load")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	if *csvDir == "" && *parquetDir == "" && !*fetch {
		logger.Error("one of -csv, -parquet or -fetch is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := salesdb.Open(ctx, salesdb.Config{Path: cfg.Database.Path})
	if err != nil {
		logger.Error("failed to open sales db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var store storage.ObjectStore
	if *fetch || *archive {
		store, err = s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	loader := &ingest.Loader{DB: db, Store: store, Logger: logger}

	sourceDir := *csvDir
	if *fetch {
		sourceDir, err = loader.FetchSources(ctx, *dataset)
		if err != nil {
			logger.Error("failed to fetch source files", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = os.RemoveAll(sourceDir) }()
	}

	switch {
	case *parquetDir != "":
		err = loader.LoadParquetDir(ctx, *parquetDir)
	default:
		err = loader.LoadCSVDir(ctx, sourceDir)
	}
	if err != nil {
		logger.Error("load failed", slog.Any("error", err))
		os.Exit(1)
	}

	if !*skipViews {
		if err := loader.CreateViews(ctx); err != nil {
			logger.Error("failed to create domain views", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if *archive {
		entries, err := loader.Archive(ctx, *dataset)
		if err != nil {
			logger.Error("archive failed", slog.Any("error", err))
			os.Exit(1)
		}
		for _, entry := range entries {
			logger.Info("archived table",
				slog.String("table", entry.Table),
				slog.String("key", entry.Key),
				slog.Int64("bytes", entry.Size),
			)
		}
	}

	logger.Info("load complete", slog.String("db_path", cfg.Database.Path))
}
