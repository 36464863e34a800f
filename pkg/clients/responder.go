package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// TemplateResponder generates plain-text chat responses. The payload section
// carries the structured data a chat frontend needs to render buttons or
// link back to the execution.
type TemplateResponder struct{}

func NewTemplateResponder() *TemplateResponder {
	return &TemplateResponder{}
}

func (r *TemplateResponder) ConfirmationPrompt(_ context.Context, match *models.TriggerMatch, _ *models.ChatTriggerContext, confirmationID string) *models.ChatResponse {
	name := match.WorkflowName
	if name == "" {
		name = match.WorkflowID
	}

	return &models.ChatResponse{
		Text: fmt.Sprintf("Run workflow %q? Reply within 5 minutes to confirm.", name),
		Payload: map[string]any{
			"confirmation_id": confirmationID,
			"workflow_id":     match.WorkflowID,
			"actions":         []string{"confirm", "decline"},
		},
	}
}

func (r *TemplateResponder) SuccessResponse(_ context.Context, execution *models.ExecutionResult) *models.ChatResponse {
	return &models.ChatResponse{
		Text: fmt.Sprintf("Workflow finished in %s.", execution.Duration.Round(time.Millisecond)),
		Payload: map[string]any{
			"execution_id": execution.ID,
			"workflow_id":  execution.WorkflowID,
			"result":       execution.Result,
		},
	}
}

func (r *TemplateResponder) ErrorResponse(_ context.Context, execution *models.ExecutionResult, reason string) *models.ChatResponse {
	return &models.ChatResponse{
		Text: "The workflow could not be completed: " + reason,
		Payload: map[string]any{
			"execution_id": execution.ID,
			"workflow_id":  execution.WorkflowID,
			"error":        reason,
		},
	}
}

func (r *TemplateResponder) CancellationResponse(_ context.Context, execution *models.ExecutionResult) *models.ChatResponse {
	return &models.ChatResponse{
		Text: "The workflow run was cancelled.",
		Payload: map[string]any{
			"execution_id": execution.ID,
			"workflow_id":  execution.WorkflowID,
		},
	}
}
