// Package web provides HTTP request and response types for the trigger API.
package web

import "github.com/noahsatkunam/chatflow/pkg/models"

// CreateRuleRequest represents the request body for creating a trigger rule.
type CreateRuleRequest struct {
	WorkflowID           string                   `json:"workflow_id"           validate:"required"`
	Name                 string                   `json:"name"                  validate:"required,min=3"`
	Type                 models.TriggerType       `json:"type"                  validate:"required,oneof=keyword pattern intent command"`
	Config               models.TriggerRuleConfig `json:"config"`
	Active               bool                     `json:"active"`
	Priority             int                      `json:"priority"`
	RequiresConfirmation bool                     `json:"requires_confirmation"`
}

// UpdateRuleRequest represents the request body for updating a rule. The full
// rule is replaced; identity and creation time are preserved server-side.
type UpdateRuleRequest struct {
	WorkflowID           string                   `json:"workflow_id"           validate:"required"`
	Name                 string                   `json:"name"                  validate:"required,min=3"`
	Type                 models.TriggerType       `json:"type"                  validate:"required,oneof=keyword pattern intent command"`
	Config               models.TriggerRuleConfig `json:"config"`
	Active               bool                     `json:"active"`
	Priority             int                      `json:"priority"`
	RequiresConfirmation bool                     `json:"requires_confirmation"`
}

// ExecuteRequest represents the request body for starting a workflow execution
// from a winning trigger match.
type ExecuteRequest struct {
	WorkflowID string                     `json:"workflow_id" validate:"required"`
	Match      *models.TriggerMatch       `json:"match"       validate:"required"`
	Context    *models.ChatTriggerContext `json:"context"     validate:"required"`
	Parameters map[string]any             `json:"parameters,omitempty"`
}

// ExecutionEventRequest represents a lifecycle event reported by the workflow
// engine for a running execution.
type ExecutionEventRequest struct {
	Type     string         `json:"type"               validate:"required,oneof=started progress completed failed"`
	Result   map[string]any `json:"result,omitempty"`
	Progress map[string]any `json:"progress,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ConfirmRequest represents the request body resolving a pending confirmation.
type ConfirmRequest struct {
	Confirmed bool                       `json:"confirmed"`
	Context   *models.ChatTriggerContext `json:"context" validate:"required"`
}

func (r *CreateRuleRequest) toModel(tenantID string) *models.TriggerRule {
	return &models.TriggerRule{
		WorkflowID:           r.WorkflowID,
		TenantID:             tenantID,
		Name:                 r.Name,
		Type:                 r.Type,
		Config:               r.Config,
		Active:               r.Active,
		Priority:             r.Priority,
		RequiresConfirmation: r.RequiresConfirmation,
	}
}

func (r *UpdateRuleRequest) toModel(tenantID string) *models.TriggerRule {
	return &models.TriggerRule{
		WorkflowID:           r.WorkflowID,
		TenantID:             tenantID,
		Name:                 r.Name,
		Type:                 r.Type,
		Config:               r.Config,
		Active:               r.Active,
		Priority:             r.Priority,
		RequiresConfirmation: r.RequiresConfirmation,
	}
}
