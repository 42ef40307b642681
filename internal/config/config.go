package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Schema        SchemaConfig
	Domain        DomainConfig
	AI            AIConfig
	Agent         AgentConfig
	History       HistoryConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Path     string
	ReadOnly bool
}

// SchemaConfig controls which namespace the catalog exposes to the agent.
// Expose "views" hides raw ingestion tables behind the domain views.
type SchemaConfig struct {
	Expose       string
	SampleValues int
}

type DomainConfig struct {
	ContextPath string
}

type AIConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	Timeout        time.Duration
	SummaryEnabled bool
}

type AgentConfig struct {
	MaxRetries        int
	RowLimit          int
	ExecutionTimeout  time.Duration
	RetryBackoff      time.Duration
	PromptCharBudget  int
	MaxStatementChars int
}

type HistoryConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

const (
	SchemaExposeAll   = "all"
	SchemaExposeViews = "views"
)

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DEALDESK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DEALDESK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "DEALDESK_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DEALDESK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DEALDESK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DEALDESK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_DB_PATH", &cfg.Database.Path); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DEALDESK_DB_READ_ONLY", &cfg.Database.ReadOnly); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_SCHEMA_EXPOSE", &cfg.Schema.Expose); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DEALDESK_SCHEMA_SAMPLE_VALUES", &cfg.Schema.SampleValues); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_DOMAIN_CONTEXT_PATH", &cfg.Domain.ContextPath); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "DEALDESK_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DEALDESK_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DEALDESK_AI_SUMMARY_ENABLED", &cfg.AI.SummaryEnabled); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DEALDESK_AGENT_MAX_RETRIES", &cfg.Agent.MaxRetries); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DEALDESK_AGENT_ROW_LIMIT", &cfg.Agent.RowLimit); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DEALDESK_AGENT_EXECUTION_TIMEOUT", &cfg.Agent.ExecutionTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DEALDESK_AGENT_RETRY_BACKOFF", &cfg.Agent.RetryBackoff); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DEALDESK_AGENT_PROMPT_CHAR_BUDGET", &cfg.Agent.PromptCharBudget); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DEALDESK_AGENT_MAX_STATEMENT_CHARS", &cfg.Agent.MaxStatementChars); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_HISTORY_DSN", &cfg.History.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DEALDESK_HISTORY_MAX_OPEN_CONNS", &cfg.History.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DEALDESK_HISTORY_MAX_IDLE_CONNS", &cfg.History.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DEALDESK_HISTORY_CONN_MAX_IDLE_TIME", &cfg.History.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DEALDESK_HISTORY_CONN_MAX_LIFETIME", &cfg.History.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DEALDESK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DEALDESK_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DEALDESK_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "DEALDESK_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DEALDESK_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DEALDESK_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Database.Path == "" {
		return Config{}, fmt.Errorf("database path is required")
	}
	if cfg.Schema.Expose != SchemaExposeAll && cfg.Schema.Expose != SchemaExposeViews {
		return Config{}, fmt.Errorf("invalid DEALDESK_SCHEMA_EXPOSE: %q", cfg.Schema.Expose)
	}
	if cfg.Agent.MaxRetries < 0 {
		return Config{}, fmt.Errorf("DEALDESK_AGENT_MAX_RETRIES must not be negative")
	}
	if cfg.Agent.RowLimit <= 0 {
		return Config{}, fmt.Errorf("DEALDESK_AGENT_ROW_LIMIT must be positive")
	}
	if cfg.Agent.ExecutionTimeout <= 0 {
		return Config{}, fmt.Errorf("DEALDESK_AGENT_EXECUTION_TIMEOUT must be positive")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "dealdesk-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Path:     "db/sales.duckdb",
			ReadOnly: true,
		},
		Schema: SchemaConfig{
			Expose:       SchemaExposeAll,
			SampleValues: 5,
		},
		AI: AIConfig{
			BaseURL:        "https://api.openai.com",
			Model:          "gpt-4o-mini",
			Temperature:    0.1,
			Timeout:        15 * time.Second,
			SummaryEnabled: false,
		},
		Agent: AgentConfig{
			MaxRetries:        2,
			RowLimit:          500,
			ExecutionTimeout:  10 * time.Second,
			RetryBackoff:      500 * time.Millisecond,
			PromptCharBudget:  8000,
			MaxStatementChars: 4000,
		},
		History: HistoryConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "dealdesk",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
		cfg.Agent.RetryBackoff = 0
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
