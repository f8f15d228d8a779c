package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/glassbox-ai/glassbox-workers/pkg/llms"
)

// Job is the queue payload that starts (or resumes) one execution.
type Job struct {
	NodeID      string    `json:"node_id"`
	ExecutionID string    `json:"execution_id"`
	OrgConfig   OrgConfig `json:"org_config"`
}

// OrgConfig carries per-organization model routing and credential
// overrides. Empty fields fall back to worker-level settings.
type OrgConfig struct {
	DefaultModel string `json:"default_model,omitempty"`
	Model        string `json:"model,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
	APIBase      string `json:"api_base,omitempty"`
}

// ParseJob decodes and validates a job payload.
func ParseJob(body string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return Job{}, fmt.Errorf("malformed job payload: %w", err)
	}
	if job.NodeID == "" || job.ExecutionID == "" {
		return Job{}, fmt.Errorf("job payload missing node_id or execution_id")
	}
	return job, nil
}

// ProviderKeys holds the worker-level API keys used when an organization
// does not bring its own.
type ProviderKeys struct {
	OpenAI    string
	Anthropic string
}

// buildProvider resolves the model and credentials for one job.
func buildProvider(job Job, defaultModel string, keys ProviderKeys) (llms.Provider, error) {
	model := job.OrgConfig.Model
	if model == "" {
		model = job.OrgConfig.DefaultModel
	}
	if model == "" {
		model = defaultModel
	}

	apiKey := job.OrgConfig.APIKey
	if apiKey == "" {
		switch llms.Family(model) {
		case "anthropic":
			apiKey = keys.Anthropic
		default:
			apiKey = keys.OpenAI
		}
	}

	return llms.NewProvider(llms.Config{
		Model:   model,
		APIKey:  apiKey,
		BaseURL: job.OrgConfig.APIBase,
	})
}

// NewHandler returns the queue handler for agent execution jobs. The
// returned error contract follows the queue's: nil acknowledges, non-nil
// leaves the message for redelivery.
func NewHandler(st Store, blobs BlobStore, defaultModel string, keys ProviderKeys, logger *slog.Logger) func(ctx context.Context, body string) error {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, body string) error {
		job, err := ParseJob(body)
		if err != nil {
			// A payload that cannot parse will never succeed; ack it.
			logger.Error("Dropping unparseable job", "error", err)
			return nil
		}

		provider, err := buildProvider(job, defaultModel, keys)
		if err != nil {
			logger.Error("Failed to build provider for job",
				"execution_id", job.ExecutionID, "error", err)
			return err
		}

		executor := NewExecutor(st, blobs, provider, logger)
		return executor.Run(ctx, job.NodeID, job.ExecutionID)
	}
}
