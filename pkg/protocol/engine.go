// Package protocol defines the collaborator contracts the orchestrator consumes.
// The workflow engine, intent detector, user directory and response generator
// are external systems; this core only depends on their interfaces.
package protocol

import (
	"context"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// Engine is the external workflow engine. Submission returns the engine's
// execution id; lifecycle updates arrive asynchronously through EngineCallbacks.
type Engine interface {
	// Submit starts a workflow run with a self-describing payload and returns
	// the engine-assigned execution id.
	Submit(ctx context.Context, workflowID string, payload *models.ExecutionPayload) (string, error)

	// Cancel asks the engine to stop a running execution. Cancellation is
	// best-effort: a nil error means the request was accepted, not that the
	// engine has already halted.
	Cancel(ctx context.Context, executionID, tenantID string) error

	// Retry asks the engine for a fresh execution of the same workflow and
	// returns the new execution id.
	Retry(ctx context.Context, executionID, tenantID string) (string, error)
}

// EngineCallbacks receives asynchronous lifecycle notifications from the
// engine. The execution tracker implements this interface.
type EngineCallbacks interface {
	OnStarted(ctx context.Context, executionID string)
	OnProgress(ctx context.Context, executionID string, progress map[string]any)
	OnCompleted(ctx context.Context, executionID string, result map[string]any)
	OnFailed(ctx context.Context, executionID string, reason string)
}
