package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealdesk/dealdesk/internal/agent"
	"github.com/dealdesk/dealdesk/internal/api"
	"github.com/dealdesk/dealdesk/internal/auth"
	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/domain"
	duckdbengine "github.com/dealdesk/dealdesk/internal/engine/duckdb"
	"github.com/dealdesk/dealdesk/internal/history"
	historypostgres "github.com/dealdesk/dealdesk/internal/history/postgres"
	"github.com/dealdesk/dealdesk/internal/llm"
	"github.com/dealdesk/dealdesk/internal/observability"
	"github.com/dealdesk/dealdesk/internal/prompt"
	"github.com/dealdesk/dealdesk/internal/salesdb"
	"github.com/dealdesk/dealdesk/internal/schema"
	"github.com/dealdesk/dealdesk/internal/sqlcheck"
)

func main() {
	cfg, err := config.LoadFromEnv("dealdesk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	salesDB, err := salesdb.Open(context.Background(), salesdb.Config{
		Path:     cfg.Database.Path,
		ReadOnly: cfg.Database.ReadOnly,
	})
	if err != nil {
		logger.Error("failed to open sales db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = salesDB.Close() }()

	catalog := schema.NewCatalog(&schema.DuckDBIntrospector{
		DB:           salesDB,
		ViewsOnly:    cfg.Schema.Expose == config.SchemaExposeViews,
		SampleValues: cfg.Schema.SampleValues,
	})
	descriptor, err := catalog.Describe(context.Background())
	if err != nil {
		logger.Error("failed to introspect sales db", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("schema catalog ready", slog.Int("objects", len(descriptor.Objects)))

	domainCtx, err := domain.Load(cfg.Domain.ContextPath)
	if err != nil {
		logger.Error("failed to load domain context", slog.Any("error", err))
		os.Exit(1)
	}

	aiClient, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize ai client", slog.Any("error", err))
		os.Exit(1)
	}

	askAgent := &agent.Agent{
		Catalog:   catalog,
		Builder:   &prompt.Builder{Domain: domainCtx, CharBudget: cfg.Agent.PromptCharBudget},
		Generator: aiClient,
		Validator: &sqlcheck.Validator{MaxStatementChars: cfg.Agent.MaxStatementChars},
		Executor:  duckdbengine.NewExecutor(salesDB),
		Logger:    logger,

		MaxRetries:       cfg.Agent.MaxRetries,
		RowLimit:         cfg.Agent.RowLimit,
		ExecutionTimeout: cfg.Agent.ExecutionTimeout,
		RetryBackoff:     cfg.Agent.RetryBackoff,
	}
	if cfg.AI.SummaryEnabled {
		askAgent.Summarizer = aiClient
	}

	var historyStore history.Store
	if cfg.History.DSN != "" {
		historyDB, err := historypostgres.Open(context.Background(), historypostgres.DBConfig{
			DSN:             cfg.History.DSN,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxIdleTime: cfg.History.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open history db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = historyDB.Close() }()
		historyStore = historypostgres.NewStore(historyDB)
		askAgent.Recorder = &history.TurnRecorder{Store: historyStore}
	}

	deps := api.Dependencies{
		Logger: logger,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabasePath(cfg),
			api.CheckAIConfig(cfg),
		),
		DependencyTimeout: time.Second,
		Agent:             askAgent,
		Catalog:           catalog,
		History:           historyStore,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
