package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/demo/crm"
	"github.com/dealdesk/dealdesk/internal/ingest"
	"github.com/dealdesk/dealdesk/internal/observability"
	"github.com/dealdesk/dealdesk/internal/salesdb"
)

func main() {
	seed := flag.Int64("seed", 42, "random seed for the generated dataset")
	accounts := flag.Int("accounts", 85, "number of accounts to generate")
	deals := flag.Int("deals", 8800, "number of pipeline deals to generate")
	interactions := flag.Int("interactions", 25000, "number of interactions to generate")
	outDir := flag.String("out", "", "directory to write the generated CSV files to")
	load := flag.Bool("load", false, "load the generated data into the sales db and create views")
	flag.Parse()

	cfg, err := config.LoadFromEnv("dealdesk-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	if *outDir == "" && !*load {
		logger.Error("one of -out or -load is required")
		os.Exit(1)
	}

	dataset := crm.NewGenerator(*seed, *accounts, *deals, *interactions).Dataset()

	dir := *outDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "dealdesk-seed-")
		if err != nil {
			logger.Error("failed to create temp dir", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = os.RemoveAll(dir) }()
	}
	if err := dataset.WriteCSVDir(dir); err != nil {
		logger.Error("failed to write csv files", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("generated demo dataset",
		slog.String("dir", dir),
		slog.Int("accounts", len(dataset.Accounts)),
		slog.Int("deals", len(dataset.Pipeline)),
		slog.Int("interactions", len(dataset.Interactions)),
	)

	if !*load {
		return
	}

	ctx := context.Background()
	db, err := salesdb.Open(ctx, salesdb.Config{Path: cfg.Database.Path})
	if err != nil {
		logger.Error("failed to open sales db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	loader := &ingest.Loader{DB: db, Logger: logger}
	if err := loader.LoadCSVDir(ctx, dir); err != nil {
		logger.Error("load failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := loader.CreateViews(ctx); err != nil {
		logger.Error("failed to create domain views", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seeded sales db", slog.String("db_path", cfg.Database.Path))
}
