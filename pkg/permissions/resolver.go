package permissions

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
)

// Denial reasons returned inside ExecutionPermissions.
const (
	ReasonWorkflowUnavailable = "workflow not found or inactive"
	ReasonUserUnknown         = "user not found in tenant"
	ReasonNotPermitted        = "execution not permitted for this user"
	ReasonConcurrencyLimit    = "concurrent execution limit reached"
	ReasonDailyQuota          = "daily execution quota reached"
	ReasonApprovalRequired    = "approval required for high-risk workflow"
	ReasonInternal            = "permission check failed"
)

// ActivityCounter reports the tracker's view of a user's executions. The
// counts here are advisory; the tracker's atomic reservation is the
// authoritative gate on the concurrency cap.
type ActivityCounter interface {
	ActiveCount(tenantID, userID string) int
	StartedToday(tenantID, userID string, now time.Time) int
}

// Config carries the resolver's limits and role sets.
type Config struct {
	MaxConcurrent int
	DailyQuota    int
	AdminRoles    []string
	ApproverRoles []string
}

// DefaultConfig returns the resolver defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 5,
		DailyQuota:    100,
		AdminRoles:    []string{"admin", "owner"},
		ApproverRoles: []string{"admin", "owner"},
	}
}

// Resolver decides whether a user may execute a workflow and whether approval
// is required first.
type Resolver struct {
	workflows persistence.WorkflowRepository
	directory protocol.Directory
	grants    GrantStore
	activity  ActivityCounter
	config    Config
	logger    *slog.Logger

	now func() time.Time
}

// NewResolver creates a permission resolver.
func NewResolver(
	workflows persistence.WorkflowRepository,
	directory protocol.Directory,
	grants GrantStore,
	activity ActivityCounter,
	config Config,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		workflows: workflows,
		directory: directory,
		grants:    grants,
		activity:  activity,
		config:    config,
		logger:    logger.With("module", "permission_resolver"),
		now:       time.Now,
	}
}

func deny(reason string) models.ExecutionPermissions {
	return models.ExecutionPermissions{CanExecute: false, Reason: reason}
}

// CheckExecutionPermissions runs the ordered permission checks; the first
// failure wins. Denials are returned as values; an unexpected internal failure
// becomes a generic denial, never an error to the caller.
func (r *Resolver) CheckExecutionPermissions(ctx context.Context, request *models.ExecutionRequest) (perms models.ExecutionPermissions) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("Permission resolution panicked", "panic", recovered)

			perms = deny(ReasonInternal)
		}
	}()

	chatCtx := request.Context

	workflow, err := r.workflows.GetByID(ctx, chatCtx.TenantID, request.WorkflowID)
	if err != nil {
		if !persistence.IsWorkflowNotFound(err) {
			r.logger.Error("Workflow lookup failed during permission resolution",
				"workflow_id", request.WorkflowID,
				"error", err)

			return deny(ReasonInternal)
		}

		return deny(ReasonWorkflowUnavailable)
	}

	if !workflow.IsActive() {
		return deny(ReasonWorkflowUnavailable)
	}

	role, err := r.directory.GetRole(ctx, chatCtx.UserID, chatCtx.TenantID)
	if err != nil {
		if errors.Is(err, protocol.ErrUserNotFound) {
			return deny(ReasonUserUnknown)
		}

		r.logger.Error("Role lookup failed during permission resolution",
			"user_id", chatCtx.UserID,
			"error", err)

		return deny(ReasonInternal)
	}

	grant, err := r.resolveGrant(ctx, request.WorkflowID, chatCtx.TenantID, chatCtx.UserID, role)
	if err != nil {
		r.logger.Error("Grant resolution failed",
			"workflow_id", request.WorkflowID,
			"user_id", chatCtx.UserID,
			"error", err)

		return deny(ReasonInternal)
	}

	if grant != nil && !grant.Execute {
		return deny(ReasonNotPermitted)
	}

	if r.activity.ActiveCount(chatCtx.TenantID, chatCtx.UserID) >= r.config.MaxConcurrent {
		return deny(ReasonConcurrencyLimit)
	}

	if r.activity.StartedToday(chatCtx.TenantID, chatCtx.UserID, r.now()) >= r.config.DailyQuota {
		return deny(ReasonDailyQuota)
	}

	if workflow.RiskLevel == models.RiskLevelHigh && !slices.Contains(r.config.AdminRoles, role) {
		return models.ExecutionPermissions{
			CanExecute:       false,
			Reason:           ReasonApprovalRequired,
			RequiresApproval: true,
			ApproverRoles:    r.config.ApproverRoles,
		}
	}

	return models.ExecutionPermissions{CanExecute: true}
}

// CanCancel reports whether the user holds cancel permission on the workflow,
// resolved through the same grant cascade as execute permission.
func (r *Resolver) CanCancel(ctx context.Context, workflowID, tenantID, userID string) bool {
	role, err := r.directory.GetRole(ctx, userID, tenantID)
	if err != nil {
		r.logger.Warn("Role lookup failed during cancel check",
			"user_id", userID,
			"error", err)

		return false
	}

	grant, err := r.resolveGrant(ctx, workflowID, tenantID, userID, role)
	if err != nil || grant == nil {
		return false
	}

	return grant.Cancel
}

// resolveGrant tries the cascade levels in order and returns the first grant
// found: per-user override, per-role workflow default, tenant-wide role
// default. A nil grant with nil error means no level had an entry.
func (r *Resolver) resolveGrant(ctx context.Context, workflowID, tenantID, userID, role string) (*models.ExecutionGrant, error) {
	lookups := []func(context.Context) (*models.ExecutionGrant, error){
		func(ctx context.Context) (*models.ExecutionGrant, error) {
			return r.grants.UserGrant(ctx, workflowID, tenantID, userID)
		},
		func(ctx context.Context) (*models.ExecutionGrant, error) {
			return r.grants.RoleGrant(ctx, workflowID, tenantID, role)
		},
		func(ctx context.Context) (*models.ExecutionGrant, error) {
			return r.grants.TenantRoleGrant(ctx, tenantID, role)
		},
	}

	for _, lookup := range lookups {
		grant, err := lookup(ctx)
		if err != nil {
			if errors.Is(err, ErrGrantNotFound) {
				continue
			}

			return nil, err
		}

		return grant, nil
	}

	return nil, nil
}
