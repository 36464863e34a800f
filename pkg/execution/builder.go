package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
)

// PayloadSource tags engine submissions originating from chat triggers.
const PayloadSource = "chat_trigger"

// ContextBuilder assembles the self-describing payload handed to the workflow
// engine. Conversation and user context come from the context-management
// collaborator; failures there degrade to a payload without that section
// rather than blocking the execution.
type ContextBuilder struct {
	contexts protocol.ContextProvider
	logger   *slog.Logger
	now      func() time.Time
}

func NewContextBuilder(contexts protocol.ContextProvider, logger *slog.Logger) *ContextBuilder {
	return &ContextBuilder{
		contexts: contexts,
		logger:   logger.With("module", "context_builder"),
		now:      time.Now,
	}
}

// Prepare builds the engine payload for an execution request. Explicit
// request parameters win over parameters extracted by the trigger match.
func (b *ContextBuilder) Prepare(ctx context.Context, request *models.ExecutionRequest) *models.ExecutionPayload {
	chatCtx := request.Context

	payload := &models.ExecutionPayload{
		Message: chatCtx,
		Trigger: models.TriggerMetadata{
			Type:        request.Match.TriggerType,
			RuleID:      request.Match.RuleID,
			MatchedText: request.Match.MatchedText,
			Confidence:  request.Match.Confidence,
			Parameters:  request.Match.Parameters,
		},
		Parameters: mergeParameters(request.Match.Parameters, request.Parameters),
		Metadata: models.PayloadMetadata{
			TenantID:  chatCtx.TenantID,
			Timestamp: b.now(),
			Source:    PayloadSource,
		},
	}

	if b.contexts == nil {
		return payload
	}

	conversation, err := b.contexts.ConversationContext(ctx, chatCtx.ConversationID, chatCtx.TenantID)
	if err != nil {
		b.logger.Warn("Proceeding without conversation context",
			"conversation_id", chatCtx.ConversationID,
			"error", err)
	} else {
		payload.Conversation = conversation
	}

	user, err := b.contexts.UserContext(ctx, chatCtx.UserID, chatCtx.TenantID)
	if err != nil {
		b.logger.Warn("Proceeding without user context",
			"user_id", chatCtx.UserID,
			"error", err)
	} else {
		payload.User = user
	}

	return payload
}

func mergeParameters(matched, explicit map[string]any) map[string]any {
	merged := make(map[string]any, len(matched)+len(explicit))

	for k, v := range matched {
		merged[k] = v
	}

	for k, v := range explicit {
		merged[k] = v
	}

	return merged
}
