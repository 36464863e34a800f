package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
)

// HTTPIntentDetector calls an external intent classification service.
type HTTPIntentDetector struct {
	baseURL string
	client  *http.Client
}

func NewHTTPIntentDetector(baseURL string) *HTTPIntentDetector {
	return &HTTPIntentDetector{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type detectIntentRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id"`
	TenantID       string `json:"tenant_id"`
	UserID         string `json:"user_id"`
}

// DetectIntent classifies the message text.
func (d *HTTPIntentDetector) DetectIntent(ctx context.Context, text string, chatCtx *models.ChatTriggerContext) (*protocol.IntentResult, error) {
	body, err := json.Marshal(detectIntentRequest{
		Text:           text,
		ConversationID: chatCtx.ConversationID,
		TenantID:       chatCtx.TenantID,
		UserID:         chatCtx.UserID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/intents/detect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intent detection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("intent detection returned status %d", resp.StatusCode)
	}

	var result protocol.IntentResult

	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode intent response: %w", err)
	}

	return &result, nil
}
