package protocol

import (
	"context"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// IntentResult is the intent detector's classification of a message.
type IntentResult struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities,omitempty"`
}

// IntentDetector classifies free-form chat text into an intent label with
// extracted entities. Classification internals are out of scope; only this
// request/response contract is used.
type IntentDetector interface {
	DetectIntent(ctx context.Context, text string, chatCtx *models.ChatTriggerContext) (*IntentResult, error)
}
