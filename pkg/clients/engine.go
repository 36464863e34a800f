// Package clients provides concrete implementations of the collaborator
// contracts: an HTTP client for the external workflow engine, an HTTP intent
// detector, a static user directory and a template-based response generator.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

const defaultTimeoutSeconds = 30

// HTTPEngine talks to the external workflow engine over its REST API.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

func NewHTTPEngine(baseURL string) *HTTPEngine {
	return &HTTPEngine{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: defaultTimeoutSeconds * time.Second,
		},
	}
}

type submitResponse struct {
	ExecutionID string `json:"execution_id"`
}

// Submit starts a workflow run and returns the engine-assigned execution id.
func (e *HTTPEngine) Submit(ctx context.Context, workflowID string, payload *models.ExecutionPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode execution payload: %w", err)
	}

	url := fmt.Sprintf("%s/workflows/%s/executions", e.baseURL, workflowID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("engine submission failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("engine submission returned status %d", resp.StatusCode)
	}

	var parsed submitResponse

	err = json.NewDecoder(resp.Body).Decode(&parsed)
	if err != nil {
		return "", fmt.Errorf("failed to decode engine response: %w", err)
	}

	if parsed.ExecutionID == "" {
		return "", fmt.Errorf("engine response missing execution id")
	}

	return parsed.ExecutionID, nil
}

// Cancel asks the engine to stop an execution.
func (e *HTTPEngine) Cancel(ctx context.Context, executionID, tenantID string) error {
	url := fmt.Sprintf("%s/executions/%s?tenant_id=%s", e.baseURL, executionID, tenantID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine cancellation failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("engine cancellation returned status %d", resp.StatusCode)
	}

	return nil
}

// Retry asks the engine for a fresh execution of the same workflow.
func (e *HTTPEngine) Retry(ctx context.Context, executionID, tenantID string) (string, error) {
	url := fmt.Sprintf("%s/executions/%s/retry?tenant_id=%s", e.baseURL, executionID, tenantID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("engine retry failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("engine retry returned status %d", resp.StatusCode)
	}

	var parsed submitResponse

	err = json.NewDecoder(resp.Body).Decode(&parsed)
	if err != nil {
		return "", fmt.Errorf("failed to decode engine response: %w", err)
	}

	if parsed.ExecutionID == "" {
		return "", fmt.Errorf("engine response missing execution id")
	}

	return parsed.ExecutionID, nil
}
