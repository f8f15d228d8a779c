// Package config loads worker settings from the environment. A .env file is
// honored in development; real deployments set variables directly.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Settings holds everything both workers need: database, queues, object
// storage and LLM credentials.
type Settings struct {
	Environment string
	LogLevel    string

	DatabaseURL string

	AWSRegion    string
	AWSEndpoint  string
	S3Bucket     string
	AgentQueue   string
	FileQueue    string
	PollInterval int

	OpenAIAPIKey    string
	AnthropicAPIKey string
	DefaultModel    string
	EmbeddingModel  string
}

// Load reads settings from the environment, loading .env first if present.
func Load() (*Settings, error) {
	// Missing .env is fine; variables may come from the real environment.
	_ = godotenv.Load()

	s := &Settings{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseURL: databaseURL(),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		AWSEndpoint:  getEnv("AWS_ENDPOINT_URL", ""),
		S3Bucket:     getEnv("S3_BUCKET", "glassbox-files-dev"),
		AgentQueue:   getEnv("AGENT_QUEUE_URL", "http://localhost:4566/000000000000/agent-executions"),
		FileQueue:    getEnv("FILE_QUEUE_URL", "http://localhost:4566/000000000000/file-processing"),
		PollInterval: getEnvInt("POLL_INTERVAL_SECONDS", 5),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DefaultModel:    getEnv("DEFAULT_MODEL", "anthropic/claude-sonnet-4-20250514"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
	}

	if s.DatabaseURL == "" {
		return nil, fmt.Errorf("database configuration missing: set DATABASE_URL or DB_HOST/DB_NAME")
	}

	return s, nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles a DSN from the
// individual DB_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USERNAME", "glassbox")
	password := getEnv("DB_PASSWORD", "glassbox_dev")
	name := getEnv("DB_NAME", "glassbox")

	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s", user, password, host, port, name)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
