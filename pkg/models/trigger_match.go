package models

// TriggerMatch represents one trigger rule that matched an inbound chat message.
// Matches are ephemeral: produced per evaluation pass, ranked, then either
// discarded or turned into an ExecutionRequest by the caller.
type TriggerMatch struct {
	// WorkflowID identifies the workflow the matching rule proposes to run.
	WorkflowID   string `json:"workflow_id"`
	WorkflowName string `json:"workflow_name,omitempty"`

	// RuleID links back to the rule that produced this match.
	RuleID string `json:"rule_id"`

	// Confidence is a [0,1] match strength used only for ranking.
	Confidence float64 `json:"confidence"`

	TriggerType TriggerType    `json:"trigger_type"`
	MatchedText string         `json:"matched_text"`
	Parameters  map[string]any `json:"parameters,omitempty"`

	RequiresConfirmation bool `json:"requires_confirmation"`
}
