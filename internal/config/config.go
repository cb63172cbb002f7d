package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration.
type Config struct {
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Operational store: sessions, artifacts, TIT.
	Database DatabaseConfig

	// Learning store: physically separate database from Database above.
	Learning LearningConfig

	// Workflow engine tunables (spec §6 Configuration).
	Workflow WorkflowConfig

	// LLM provider configuration.
	LLM LLMConfig

	// Artifact blob storage (S3-compatible).
	ArtifactStorage ArtifactStorageConfig

	// Session API authentication.
	Auth AuthConfig

	// OpenTelemetry tracing.
	Otel OtelConfig

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"28800s"` // 8h, long enough for SSE event stream
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"28800s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds the operational PostgreSQL connection settings.
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"orchestrator"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"orchestrator"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// LearningConfig holds the connection settings for the hard-isolated
// learning store. It is a distinct database from DatabaseConfig by
// construction: there is no field that lets the two collapse to the same
// DSN short of an operator explicitly pointing both at the same place.
type LearningConfig struct {
	Host         string `env:"LEARNING_POSTGRES_HOST" envDefault:"localhost"`
	Port         int    `env:"LEARNING_POSTGRES_PORT" envDefault:"5432"`
	User         string `env:"LEARNING_POSTGRES_USER" envDefault:"orchestrator_learning"`
	Password     string `env:"LEARNING_POSTGRES_PASSWORD" envDefault:""`
	Database     string `env:"LEARNING_POSTGRES_DB" envDefault:"orchestrator_learning"`
	SSLMode      string `env:"LEARNING_POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int    `env:"LEARNING_DB_MAX_OPEN_CONNS" envDefault:"10"`
}

// DSN returns the PostgreSQL connection string for the learning store.
func (l *LearningConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		l.User, l.Password, l.Host, l.Port, l.Database, l.SSLMode,
	)
}

// WorkflowConfig holds the workflow-engine tunables named in spec §6.
type WorkflowConfig struct {
	RetryMaxPerStep   int           `env:"RETRY_MAX_PER_STEP" envDefault:"3"`
	LLMTimeoutSeconds int           `env:"LLM_TIMEOUT_SECONDS" envDefault:"120"`
	TITEnabled        bool          `env:"TIT_ENABLED" envDefault:"true"`
	SalvageEnabled    bool          `env:"SALVAGE_ENABLED" envDefault:"true"`
	StaleSessionAfter time.Duration `env:"STALE_SESSION_AFTER" envDefault:"15m"`
	StepCatalogPath   string        `env:"STEP_CATALOG_PATH" envDefault:"./internal/config/steps.yaml"`
	WorkspaceRoot     string        `env:"WORKFLOW_WORKSPACE_ROOT" envDefault:"./data/workspaces"`
}

// LLMTimeout returns the configured LLM call timeout as a Duration.
func (w *WorkflowConfig) LLMTimeout() time.Duration {
	return time.Duration(w.LLMTimeoutSeconds) * time.Second
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	GCPProjectID     string  `env:"GCP_PROJECT_ID" envDefault:""`
	VertexAILocation string  `env:"VERTEX_AI_LOCATION" envDefault:"global"`
	Model            string  `env:"LLM_MODEL" envDefault:"gemini-3-flash-preview"`
	Temperature      float64 `env:"LLM_TEMPERATURE" envDefault:"0"`
	GoogleAPIKey     string  `env:"GOOGLE_API_KEY" envDefault:""`
	NetworkDisabled  bool    `env:"LLM_NETWORK_DISABLED" envDefault:"false"`
}

// IsEnabled returns true if the LLM provider is configured to make
// network calls.
func (l *LLMConfig) IsEnabled() bool {
	if l.NetworkDisabled {
		return false
	}
	return l.UseVertexAI() || l.GoogleAPIKey != ""
}

// UseVertexAI returns true if Vertex AI credentials are present.
func (l *LLMConfig) UseVertexAI() bool {
	return l.GCPProjectID != "" && l.VertexAILocation != ""
}

// ArtifactStorageConfig holds S3-compatible object storage settings for
// artifact blobs (the (path, content) pairs of a Step's Artifact).
type ArtifactStorageConfig struct {
	Endpoint        string `env:"ARTIFACT_S3_ENDPOINT" envDefault:""`
	AccessKeyID     string `env:"ARTIFACT_S3_ACCESS_KEY" envDefault:""`
	SecretAccessKey string `env:"ARTIFACT_S3_SECRET_KEY" envDefault:""`
	Bucket          string `env:"ARTIFACT_S3_BUCKET" envDefault:"orchestrator-artifacts"`
	Region          string `env:"ARTIFACT_S3_REGION" envDefault:"us-east-1"`
	UseSSL          bool   `env:"ARTIFACT_S3_USE_SSL" envDefault:"true"`
}

// IsConfigured returns true if artifact storage credentials are set.
func (s *ArtifactStorageConfig) IsConfigured() bool {
	return s.Endpoint != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// AuthConfig holds OIDC settings for the Session API.
type AuthConfig struct {
	Issuer               string        `env:"AUTH_ISSUER" envDefault:"http://localhost:8080"`
	ClientJWTPath         string        `env:"AUTH_CLIENT_JWT_PATH" envDefault:""`
	DisableIntrospection  bool          `env:"AUTH_DISABLE_INTROSPECTION" envDefault:"false"`
	IntrospectCacheTTL    time.Duration `env:"AUTH_INTROSPECT_CACHE_TTL" envDefault:"5m"`
	DebugToken            string        `env:"AUTH_DEBUG_TOKEN" envDefault:""`
}

// NewConfig loads configuration from environment variables.
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.String("learning_db_host", cfg.Learning.Host),
		slog.Int("retry_max_per_step", cfg.Workflow.RetryMaxPerStep),
	)

	return cfg, nil
}
