package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration.
type Config struct {
	Env         string `envconfig:"ENV" default:"dev"`
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	PromptRegistryURL string `envconfig:"PROMPT_REGISTRY_URL" default:"http://prompt-registry:8000"`
	PromptsDir        string `envconfig:"PROMPTS_DIR" default:"./prompts"`

	ExtractionServiceURL string        `envconfig:"EXTRACTION_SERVICE_URL" default:"http://extraction-service:8000"`
	ExtractionTimeout    time.Duration `envconfig:"EXTRACTION_TIMEOUT" default:"600s"`

	RequestTimeout   time.Duration `envconfig:"REQUEST_TIMEOUT" default:"120s"`
	CompareChunkSize int           `envconfig:"COMPARE_CHUNK_SIZE" default:"120"`
	CompareDelay     time.Duration `envconfig:"COMPARE_CHUNK_DELAY" default:"600ms"`
	CallbackURL      string        `envconfig:"COMPARE_CALLBACK_URL"`
	CallbackAttempts uint          `envconfig:"CALLBACK_ATTEMPTS" default:"3"`

	OpenRouterAPIKey  string `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterModel   string `envconfig:"OPENROUTER_MODEL" default:"openai/gpt-4o-mini"`
	OpenRouterBaseURL string `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`

	JobMaxRetries   int           `envconfig:"JOB_MAX_RETRIES" default:"5"`
	JobRunningLease time.Duration `envconfig:"JOB_RUNNING_LEASE" default:"30m"`

	S3EndpointURL string        `envconfig:"S3_ENDPOINT_URL"`
	S3Region      string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket      string        `envconfig:"BUCKET_NAME"`
	S3PresignTTL  time.Duration `envconfig:"S3_PRESIGN_TTL" default:"15m"`

	SQSQueueURL          string        `envconfig:"SQS_QUEUE_URL"`
	SQSRegion            string        `envconfig:"SQS_REGION" default:"us-east-1"`
	SQSEndpointURL       string        `envconfig:"SQS_ENDPOINT_URL"`
	WorkerConcurrency    int           `envconfig:"WORKER_CONCURRENCY" default:"4"`
	SQSVisibilityTimeout time.Duration `envconfig:"SQS_VISIBILITY_TIMEOUT" default:"20m"`
	ShutdownTimeout      time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.PromptRegistryURL = strings.TrimRight(cfg.PromptRegistryURL, "/")
	cfg.ExtractionServiceURL = strings.TrimRight(cfg.ExtractionServiceURL, "/")

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required in production")
	}
	if cfg.CompareChunkSize < 0 {
		return Config{}, errors.New("COMPARE_CHUNK_SIZE must not be negative")
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 1
	}
	return cfg, nil
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
