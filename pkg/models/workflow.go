package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusInactive WorkflowStatus = "inactive"
)

// RiskLevel classifies how sensitive a workflow's side effects are. High-risk
// workflows require approval before non-administrative users may run them.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Workflow is the orchestrator's view of a workflow definition. The node graph
// itself lives in the external engine; this core only needs identity, tenancy,
// activation state and risk classification.
type Workflow struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id" validate:"required"`
	Name      string         `json:"name"      validate:"required,min=3"`
	Status    WorkflowStatus `json:"status"`
	RiskLevel RiskLevel      `json:"risk_level"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsActive reports whether the workflow may be executed.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}
