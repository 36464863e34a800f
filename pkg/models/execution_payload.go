package models

import "time"

// TriggerMetadata describes how an execution was triggered, carried inside the
// engine submission payload.
type TriggerMetadata struct {
	Type        TriggerType    `json:"type"`
	RuleID      string         `json:"rule_id"`
	MatchedText string         `json:"matched_text"`
	Confidence  float64        `json:"confidence"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// PayloadMetadata carries system-level metadata on an engine submission.
type PayloadMetadata struct {
	TenantID  string    `json:"tenant_id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// ExecutionPayload is the self-describing payload handed to the external
// workflow engine. The engine has no other means of learning the originating
// chat context, so everything it may need crosses the boundary here.
type ExecutionPayload struct {
	Message      *ChatTriggerContext `json:"message"`
	Conversation map[string]any      `json:"conversation,omitempty"`
	User         map[string]any      `json:"user,omitempty"`
	Trigger      TriggerMetadata     `json:"trigger"`
	Parameters   map[string]any      `json:"parameters,omitempty"`
	Metadata     PayloadMetadata     `json:"metadata"`
}
