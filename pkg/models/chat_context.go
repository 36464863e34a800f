package models

import "time"

// MessageRole identifies the author type of a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ChatMessage is a single prior message carried as conversational context.
type ChatMessage struct {
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// ChatTriggerContext is an immutable snapshot of one inbound chat message.
// It is produced by the chat layer and consumed read-only by trigger detection.
type ChatTriggerContext struct {
	ConversationID string        `json:"conversation_id"`
	MessageID      string        `json:"message_id"`
	Text           string        `json:"text"`
	UserID         string        `json:"user_id"`
	TenantID       string        `json:"tenant_id"`
	Role           MessageRole   `json:"role"`
	Timestamp      time.Time     `json:"timestamp"`
	History        []ChatMessage `json:"history,omitempty"`
}

// HasHistory reports whether any prior conversational context is present.
func (c *ChatTriggerContext) HasHistory() bool {
	return len(c.History) > 0
}
