package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// GetNode loads the node an execution is working on.
func (s *Store) GetNode(ctx context.Context, id string) (*Node, error) {
	query := `
		SELECT id, org_id, COALESCE(project_id::text, ''),
		       COALESCE(parent_id::text, ''),
		       title, COALESCE(description, ''),
		       author_type, status
		FROM nodes
		WHERE id = $1`

	var node Node
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&node.ID, &node.OrgID, &node.ProjectID, &node.ParentID,
		&node.Title, &node.Description, &node.AuthorType, &node.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s: %w", id, err)
	}

	return &node, nil
}

// ListInputs returns the node's inputs in display order, with extracted text
// joined in for file inputs.
func (s *Store) ListInputs(ctx context.Context, nodeID string) ([]NodeInput, error) {
	query := `
		SELECT ni.input_type, COALESCE(ni.label, ''),
		       COALESCE(ni.text_content, ''), COALESCE(ni.external_url, ''),
		       COALESCE(ni.file_id::text, ''),
		       COALESCE(f.filename, ''), COALESCE(f.extracted_text, '')
		FROM node_inputs ni
		LEFT JOIN files f ON f.id = ni.file_id
		WHERE ni.node_id = $1
		ORDER BY ni.sort_order`

	rows, err := s.db.QueryContext(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inputs for node %s: %w", nodeID, err)
	}
	defer rows.Close()

	var inputs []NodeInput
	for rows.Next() {
		var in NodeInput
		if err := rows.Scan(
			&in.InputType, &in.Label, &in.TextContent, &in.ExternalURL,
			&in.FileID, &in.Filename, &in.ExtractedText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan input row: %w", err)
		}
		inputs = append(inputs, in)
	}

	return inputs, rows.Err()
}

// InsertSubnode creates a draft child node inheriting the parent's org and
// project scope, and returns the new node's id.
func (s *Store) InsertSubnode(ctx context.Context, parentID, title, description, authorType string) (string, error) {
	id := uuid.NewString()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, org_id, project_id, parent_id, title, description, author_type, status, created_at)
		SELECT $1, org_id, project_id, id, $2, NULLIF($3, ''), $4, 'draft', NOW()
		FROM nodes
		WHERE id = $5`,
		id, title, description, authorType, parentID)
	if err != nil {
		return "", fmt.Errorf("failed to create sub-node: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return "", fmt.Errorf("parent node %s not found", parentID)
	}

	return id, nil
}

// InsertNodeOutput records an output descriptor pointing at a stored file.
func (s *Store) InsertNodeOutput(ctx context.Context, nodeID, outputType, fileID, label string, metadata map[string]any) error {
	payload, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO node_outputs (id, node_id, output_type, file_id, label, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW())`,
		uuid.NewString(), nodeID, outputType, fileID, label, payload)
	if err != nil {
		return fmt.Errorf("failed to insert node output: %w", err)
	}
	return nil
}
