// Package permissions decides whether a user may execute or cancel a workflow,
// resolving grants through a cascading lookup and enforcing concurrency,
// quota and approval gates.
package permissions

import (
	"context"
	"errors"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// ErrGrantNotFound indicates no grant exists at a given cascade level. The
// resolver falls through to the next level; only GrantStore implementations
// and tests should need it.
var ErrGrantNotFound = errors.New("execution grant not found")

// GrantStore persists execution grants at the three cascade levels: a per-user
// override on one workflow, a per-role default on one workflow, and a
// tenant-wide per-role default.
type GrantStore interface {
	UserGrant(ctx context.Context, workflowID, tenantID, userID string) (*models.ExecutionGrant, error)
	RoleGrant(ctx context.Context, workflowID, tenantID, role string) (*models.ExecutionGrant, error)
	TenantRoleGrant(ctx context.Context, tenantID, role string) (*models.ExecutionGrant, error)
}
