// The agent worker consumes agent execution jobs and drives the resumable
// execution engine for each one.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glassbox-ai/glassbox-workers/pkg/agent"
	"github.com/glassbox-ai/glassbox-workers/pkg/config"
	"github.com/glassbox-ai/glassbox-workers/pkg/logger"
	"github.com/glassbox-ai/glassbox-workers/pkg/queue"
	"github.com/glassbox-ai/glassbox-workers/pkg/storage"
	"github.com/glassbox-ai/glassbox-workers/pkg/store"
)

// Executions can run many model round-trips; the visibility timeout must
// outlast the slowest of them.
const visibilityTimeout = 15 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("Agent worker exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	blobs, err := storage.NewS3Store(ctx, cfg.AWSRegion, cfg.AWSEndpoint, cfg.S3Bucket)
	if err != nil {
		return err
	}

	sqsClient, err := queue.NewClient(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		return err
	}

	handler := agent.NewHandler(st, blobs, cfg.DefaultModel, agent.ProviderKeys{
		OpenAI:    cfg.OpenAIAPIKey,
		Anthropic: cfg.AnthropicAPIKey,
	}, log)

	log.Info("Agent worker starting",
		"environment", cfg.Environment,
		"queue", cfg.AgentQueue,
		"default_model", cfg.DefaultModel)

	consumer := queue.NewConsumer(sqsClient, cfg.AgentQueue, visibilityTimeout, log)
	return consumer.Run(ctx, handler)
}
