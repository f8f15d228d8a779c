// The file worker consumes file processing jobs and runs the extraction
// and embedding pipeline.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glassbox-ai/glassbox-workers/pkg/config"
	"github.com/glassbox-ai/glassbox-workers/pkg/embedder"
	"github.com/glassbox-ai/glassbox-workers/pkg/fileproc"
	"github.com/glassbox-ai/glassbox-workers/pkg/logger"
	"github.com/glassbox-ai/glassbox-workers/pkg/queue"
	"github.com/glassbox-ai/glassbox-workers/pkg/storage"
	"github.com/glassbox-ai/glassbox-workers/pkg/store"
)

const visibilityTimeout = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("File worker exited with error", "error", err)
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

	emb := embedder.NewOpenAI(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	processor := fileproc.NewProcessor(st, blobs, emb, log)

	log.Info("File worker starting",
		"environment", cfg.Environment,
		"queue", cfg.FileQueue,
		"embedding_model", cfg.EmbeddingModel,
		"embedding_enabled", cfg.OpenAIAPIKey != "")

	consumer := queue.NewConsumer(sqsClient, cfg.FileQueue, visibilityTimeout, log)
	return consumer.Run(ctx, processor.HandleJob)
}
