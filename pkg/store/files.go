package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// maxExtractedTextChars caps what we persist from a single document.
const maxExtractedTextChars = 50000

// GetFile loads a file record for processing.
func (s *Store) GetFile(ctx context.Context, id string) (*FileRecord, error) {
	query := `
		SELECT id, org_id, storage_key, storage_bucket, filename,
		       COALESCE(content_type, ''), COALESCE(size_bytes, 0),
		       COALESCE(processing_status, '')
		FROM files
		WHERE id = $1`

	var f FileRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.OrgID, &f.StorageKey, &f.StorageBucket, &f.Filename,
		&f.ContentType, &f.SizeBytes, &f.ProcessingStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file %s: %w", id, err)
	}

	return &f, nil
}

// InsertFile records a newly stored blob and returns its id.
func (s *Store) InsertFile(ctx context.Context, orgID, storageKey, bucket, filename, contentType string, sizeBytes int64, metadata map[string]any) (string, error) {
	payload, err := marshalMetadata(metadata)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO files (id, org_id, storage_key, storage_bucket, filename,
		                   content_type, size_bytes, processing_status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'complete', $8, NOW())`,
		id, orgID, storageKey, bucket, filename, contentType, sizeBytes, payload)
	if err != nil {
		return "", fmt.Errorf("failed to insert file record: %w", err)
	}

	return id, nil
}

// MarkFileProcessing flags the record before extraction begins.
func (s *Store) MarkFileProcessing(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE files SET processing_status = 'processing', processing_error = NULL
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark file processing: %w", err)
	}
	return nil
}

// CompleteFileExtraction stores the extracted text (capped) and the optional
// embedding, and marks the record complete. A nil embedding leaves the
// column untouched.
func (s *Store) CompleteFileExtraction(ctx context.Context, id, text string, embedding []float32) error {
	text = truncateChars(text, maxExtractedTextChars)

	var err error
	if embedding == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE files
			SET extracted_text = $1, processing_status = 'complete', processing_error = NULL
			WHERE id = $2`, text, id)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE files
			SET extracted_text = $1, embedding = $2::vector,
			    processing_status = 'complete', processing_error = NULL
			WHERE id = $3`, text, vectorLiteral(embedding), id)
	}
	if err != nil {
		return fmt.Errorf("failed to complete file extraction: %w", err)
	}
	return nil
}

// FailFile records an extraction failure.
func (s *Store) FailFile(ctx context.Context, id, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE files SET processing_status = 'failed', processing_error = $1
		WHERE id = $2`, message, id)
	if err != nil {
		return fmt.Errorf("failed to mark file failed: %w", err)
	}
	return nil
}

// truncateChars caps s at max characters. Cutting on a rune boundary keeps
// the result valid UTF-8 for the text column.
func truncateChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// vectorLiteral renders a pgvector input literal: [0.1,0.2,...].
func vectorLiteral(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(payload), nil
}
