// Package persistence provides the storage abstraction for trigger rules and
// the orchestrator's view of workflow definitions.
package persistence

import (
	"context"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// RuleRepository stores tenant-scoped trigger rules.
type RuleRepository interface {
	// RulesByTenant returns all rules for a tenant ordered by priority
	// descending, creation time ascending.
	RulesByTenant(ctx context.Context, tenantID string) ([]*models.TriggerRule, error)
	GetByID(ctx context.Context, tenantID, id string) (*models.TriggerRule, error)
	Save(ctx context.Context, rule *models.TriggerRule) error
	Delete(ctx context.Context, tenantID, id string) error
}

// WorkflowRepository stores the workflow definitions rules point at. Only the
// fields the orchestrator consults are persisted here; the node graph lives in
// the external engine.
type WorkflowRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
}

// Persistence aggregates the repositories behind one lifecycle.
type Persistence interface {
	RuleRepository() RuleRepository
	WorkflowRepository() WorkflowRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
