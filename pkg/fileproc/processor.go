// Package fileproc runs the file processing pipeline: download the stored
// blob, extract its text, embed it when a provider is configured, and
// persist the results on the file record.
package fileproc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/glassbox-ai/glassbox-workers/pkg/extract"
	"github.com/glassbox-ai/glassbox-workers/pkg/store"
)

// Store is the persistence slice the pipeline needs.
type Store interface {
	GetFile(ctx context.Context, id string) (*store.FileRecord, error)
	MarkFileProcessing(ctx context.Context, id string) error
	CompleteFileExtraction(ctx context.Context, id, text string, embedding []float32) error
	FailFile(ctx context.Context, id, message string) error
}

// BlobStore is the download capability.
type BlobStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// Embedder generates a vector for extracted text; nil vectors are valid
// (no provider configured).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Job is the queue payload for one file.
type Job struct {
	FileID string `json:"file_id"`
	Action string `json:"action,omitempty"`
}

type Processor struct {
	store    Store
	blobs    BlobStore
	embedder Embedder
	logger   *slog.Logger
}

func NewProcessor(st Store, blobs BlobStore, emb Embedder, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{store: st, blobs: blobs, embedder: emb, logger: logger}
}

// HandleJob is the queue handler. Unparseable payloads are acknowledged;
// processing faults propagate for redelivery.
func (p *Processor) HandleJob(ctx context.Context, body string) error {
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		p.logger.Error("Dropping unparseable file job", "error", err)
		return nil
	}
	if job.FileID == "" {
		p.logger.Error("Dropping file job without file_id")
		return nil
	}

	return p.Process(ctx, job.FileID)
}

// Process runs the pipeline for one file. On fault the record is marked
// failed with the error message, and the fault propagates so the queue
// retries.
func (p *Processor) Process(ctx context.Context, fileID string) error {
	log := p.logger.With("file_id", fileID)

	file, err := p.store.GetFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to load file record: %w", err)
	}

	if err := p.store.MarkFileProcessing(ctx, fileID); err != nil {
		return fmt.Errorf("failed to mark file processing: %w", err)
	}

	text, err := p.extractText(ctx, file)
	if err != nil {
		return p.fail(ctx, log, fileID, err)
	}

	var embedding []float32
	if text != "" {
		embedding, err = p.embedder.Embed(ctx, text)
		if err != nil {
			return p.fail(ctx, log, fileID, fmt.Errorf("embedding failed: %w", err))
		}
	}

	if err := p.store.CompleteFileExtraction(ctx, fileID, text, embedding); err != nil {
		return p.fail(ctx, log, fileID, err)
	}

	log.Info("File processed",
		"content_type", file.ContentType,
		"text_chars", len(text),
		"embedded", embedding != nil)
	return nil
}

func (p *Processor) extractText(ctx context.Context, file *store.FileRecord) (string, error) {
	content, err := p.blobs.Download(ctx, file.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", file.StorageKey, err)
	}

	text, err := extract.Text(ctx, content, file.ContentType)
	if err != nil {
		return "", fmt.Errorf("extraction failed for %s: %w", file.Filename, err)
	}
	return text, nil
}

func (p *Processor) fail(ctx context.Context, log *slog.Logger, fileID string, cause error) error {
	log.Error("File processing failed", "error", cause)
	if err := p.store.FailFile(ctx, fileID, cause.Error()); err != nil {
		log.Error("Failed to record file failure", "error", err)
	}
	return cause
}
