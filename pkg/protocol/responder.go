package protocol

import (
	"context"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// ResponseGenerator produces the chat-facing payloads the orchestrator sends
// back into the originating conversation. User-visible failures always flow
// through here; raw errors never reach the chat surface.
type ResponseGenerator interface {
	ConfirmationPrompt(ctx context.Context, match *models.TriggerMatch, chatCtx *models.ChatTriggerContext, confirmationID string) *models.ChatResponse
	SuccessResponse(ctx context.Context, execution *models.ExecutionResult) *models.ChatResponse
	ErrorResponse(ctx context.Context, execution *models.ExecutionResult, reason string) *models.ChatResponse
	CancellationResponse(ctx context.Context, execution *models.ExecutionResult) *models.ChatResponse
}
