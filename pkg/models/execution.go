package models

import "time"

// ExecutionStatus represents the lifecycle state of a tracked workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusStarted   ExecutionStatus = "started"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	case ExecutionStatusStarted, ExecutionStatusRunning:
		return false
	}

	return false
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition: started -> running -> {completed | failed | cancelled}.
// Cancellation is additionally allowed straight from started.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	if s.IsTerminal() {
		return false
	}

	switch s {
	case ExecutionStatusStarted:
		return next == ExecutionStatusRunning || next.IsTerminal()
	case ExecutionStatusRunning:
		return next.IsTerminal()
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return false
	}

	return false
}

// ExecutionRequest is the input to the orchestrator: a winning trigger match
// plus the chat context it came from.
type ExecutionRequest struct {
	WorkflowID    string              `json:"workflow_id"`
	Match         *TriggerMatch       `json:"match"`
	Context       *ChatTriggerContext `json:"context"`
	Parameters    map[string]any      `json:"parameters,omitempty"`
	UserConfirmed bool                `json:"user_confirmed"`
}

// ChatResponse is a chat-facing payload generated for the originating conversation.
type ChatResponse struct {
	Text    string         `json:"text"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ExecutionResult is the tracked record of one workflow execution. It lives in
// the execution tracker from creation until a grace-period cleanup removes it.
type ExecutionResult struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	TenantID   string          `json:"tenant_id"`
	UserID     string          `json:"user_id"`
	Status     ExecutionStatus `json:"status"`

	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`

	// ChatResponse is set when the execution originated from chat.
	ChatResponse *ChatResponse `json:"chat_response,omitempty"`

	// RetryOf links a retried execution back to the failed one it replaces.
	RetryOf string `json:"retry_of,omitempty"`

	// FromChat marks executions whose terminal transitions should generate
	// a chat-facing response.
	FromChat bool `json:"from_chat"`
}

// ExecutionPermissions is the outcome of permission resolution for one request.
// Denials are values, not errors: callers branch on CanExecute.
type ExecutionPermissions struct {
	CanExecute       bool     `json:"can_execute"`
	Reason           string   `json:"reason,omitempty"`
	RequiresApproval bool     `json:"requires_approval,omitempty"`
	ApproverRoles    []string `json:"approver_roles,omitempty"`
}

// ExecutionGrant is a stored permission entry resolved through the cascading
// lookup: per-user override, per-role default, tenant-wide role default.
type ExecutionGrant struct {
	Execute bool `json:"execute"`
	Cancel  bool `json:"cancel"`
}

// PendingConfirmation holds an execution request parked behind a short-lived,
// single-use confirmation token.
type PendingConfirmation struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	UserID    string            `json:"user_id"`
	Request   *ExecutionRequest `json:"request"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Expired reports whether the confirmation can no longer be resolved at now.
func (p *PendingConfirmation) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
