package execution

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noahsatkunam/chatflow/pkg/confirmation"
	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/otelhelper"
	"github.com/noahsatkunam/chatflow/pkg/permissions"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
	"github.com/noahsatkunam/chatflow/pkg/ratelimit"
)

// ErrInvalidRequest is returned when an execution request is missing its
// match or chat context.
var ErrInvalidRequest = errors.New("execution request requires a match and a chat context")

// Orchestrator drives the full execution path for a winning trigger match:
// permission resolution, the confirmation handshake, engine submission and
// tracking, plus cancel, retry and status lookups on tracked executions.
type Orchestrator struct {
	resolver      *permissions.Resolver
	confirmations confirmation.Store
	tracker       *Tracker
	builder       *ContextBuilder
	engine        protocol.Engine
	responder     protocol.ResponseGenerator
	limiter       ratelimit.Limiter
	logger        *slog.Logger
	tracer        trace.Tracer

	maxConcurrent   int
	confirmationTTL time.Duration

	now func() time.Time
}

// NewOrchestrator wires the orchestrator. maxConcurrent must match the
// resolver's configuration; the tracker enforces it atomically at submission.
func NewOrchestrator(
	resolver *permissions.Resolver,
	confirmations confirmation.Store,
	tracker *Tracker,
	builder *ContextBuilder,
	engine protocol.Engine,
	responder protocol.ResponseGenerator,
	limiter ratelimit.Limiter,
	maxConcurrent int,
	logger *slog.Logger,
	tracer trace.Tracer,
) *Orchestrator {
	return &Orchestrator{
		resolver:        resolver,
		confirmations:   confirmations,
		tracker:         tracker,
		builder:         builder,
		engine:          engine,
		responder:       responder,
		limiter:         limiter,
		logger:          logger.With("module", "orchestrator"),
		tracer:          tracer,
		maxConcurrent:   maxConcurrent,
		confirmationTTL: confirmation.DefaultTTL,
		now:             time.Now,
	}
}

// ExecuteWorkflow runs the execution path for one request. Denials and engine
// failures come back as failed results carrying a chat-facing response; the
// error return is reserved for malformed requests.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, request *models.ExecutionRequest) (*models.ExecutionResult, error) {
	if request == nil || request.Match == nil || request.Context == nil {
		return nil, ErrInvalidRequest
	}

	ctx, span := o.startSpan(ctx, "orchestrator.execute_workflow", request)
	defer span.End()

	chatCtx := request.Context

	perms := o.resolver.CheckExecutionPermissions(ctx, request)
	if !perms.CanExecute {
		o.logger.Info("Execution denied",
			"workflow_id", request.WorkflowID,
			"user_id", chatCtx.UserID,
			"reason", perms.Reason)

		result := o.failedResult(ctx, request, perms.Reason)
		if perms.RequiresApproval {
			result.Result = map[string]any{
				"requires_approval": true,
				"approver_roles":    perms.ApproverRoles,
			}
		}

		return result, nil
	}

	if request.Match.RequiresConfirmation && !request.UserConfirmed {
		return o.requestConfirmation(ctx, request)
	}

	return o.submit(ctx, span, request)
}

// HandleUserConfirmation resolves a pending confirmation. The token is
// single-use: it is deleted whether the user confirmed or declined. A missing,
// expired or foreign token surfaces as confirmation.ErrNotFound.
func (o *Orchestrator) HandleUserConfirmation(ctx context.Context, confirmationID string, confirmed bool, chatCtx *models.ChatTriggerContext) (*models.ExecutionResult, error) {
	if chatCtx == nil {
		return nil, ErrInvalidRequest
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.handle_confirmation", trace.WithAttributes(
		attribute.String(otelhelper.ConfirmationIDKey, confirmationID),
		attribute.String(otelhelper.TenantIDKey, chatCtx.TenantID),
		attribute.Bool("chatflow.confirmation.confirmed", confirmed),
	))
	defer span.End()

	pending, err := o.confirmations.Find(ctx, confirmationID, chatCtx.TenantID, chatCtx.UserID)
	if err != nil {
		return nil, err
	}

	err = o.confirmations.Delete(ctx, confirmationID)
	if err != nil {
		o.logger.Warn("Failed to delete resolved confirmation",
			"confirmation_id", confirmationID,
			"error", err)
	}

	if !confirmed {
		now := o.now()
		result := &models.ExecutionResult{
			ID:         uuid.New().String(),
			WorkflowID: pending.Request.WorkflowID,
			TenantID:   pending.TenantID,
			UserID:     pending.UserID,
			Status:     models.ExecutionStatusCancelled,
			StartedAt:  now,
			FinishedAt: &now,
			FromChat:   true,
		}
		result.ChatResponse = o.responder.CancellationResponse(ctx, result)

		return result, nil
	}

	pending.Request.UserConfirmed = true

	return o.ExecuteWorkflow(ctx, pending.Request)
}

// CancelExecution requests cancellation of a tracked execution. It returns
// true only when the caller was allowed to cancel and the engine accepted the
// request. Owners may always cancel their own executions.
func (o *Orchestrator) CancelExecution(ctx context.Context, executionID, userID, tenantID string) bool {
	execution := o.tracker.Get(executionID)
	if execution == nil || execution.TenantID != tenantID {
		return false
	}

	if execution.Status.IsTerminal() {
		return false
	}

	if execution.UserID != userID && !o.resolver.CanCancel(ctx, execution.WorkflowID, tenantID, userID) {
		o.logger.Info("Cancellation not permitted",
			"execution_id", executionID,
			"user_id", userID)

		return false
	}

	err := o.engine.Cancel(ctx, executionID, tenantID)
	if err != nil {
		o.logger.Error("Engine rejected cancellation",
			"execution_id", executionID,
			"error", err)

		return false
	}

	o.tracker.MarkCancelled(ctx, executionID, userID)

	return true
}

// RetryExecution resubmits a failed execution and returns the new tracked
// result, or nil when the execution is unknown, not failed, or the engine
// refused the retry.
func (o *Orchestrator) RetryExecution(ctx context.Context, executionID, userID, tenantID string) *models.ExecutionResult {
	execution := o.tracker.Get(executionID)
	if execution == nil || execution.TenantID != tenantID {
		return nil
	}

	if execution.Status != models.ExecutionStatusFailed {
		return nil
	}

	newID, err := o.engine.Retry(ctx, executionID, tenantID)
	if err != nil {
		o.logger.Error("Engine rejected retry",
			"execution_id", executionID,
			"error", err)

		return nil
	}

	result := &models.ExecutionResult{
		ID:         newID,
		WorkflowID: execution.WorkflowID,
		TenantID:   tenantID,
		UserID:     userID,
		Status:     models.ExecutionStatusStarted,
		StartedAt:  o.now(),
		RetryOf:    executionID,
		FromChat:   execution.FromChat,
	}

	o.tracker.Track(ctx, result)

	o.logger.Info("Execution retried",
		"execution_id", newID,
		"retry_of", executionID,
		"workflow_id", execution.WorkflowID)

	return result
}

// GetExecutionStatus returns the tracked execution, or nil when unknown or
// already purged.
func (o *Orchestrator) GetExecutionStatus(executionID string) *models.ExecutionResult {
	return o.tracker.Get(executionID)
}

// requestConfirmation parks the request behind a short-lived token and returns
// a placeholder result whose chat response carries the confirmation prompt.
func (o *Orchestrator) requestConfirmation(ctx context.Context, request *models.ExecutionRequest) (*models.ExecutionResult, error) {
	chatCtx := request.Context
	now := o.now()

	pending := &models.PendingConfirmation{
		ID:        uuid.New().String(),
		TenantID:  chatCtx.TenantID,
		UserID:    chatCtx.UserID,
		Request:   request,
		CreatedAt: now,
		ExpiresAt: now.Add(o.confirmationTTL),
	}

	err := o.confirmations.Create(ctx, pending)
	if err != nil {
		o.logger.Error("Failed to store pending confirmation",
			"workflow_id", request.WorkflowID,
			"error", err)

		return o.failedResult(ctx, request, "could not initiate confirmation"), nil
	}

	result := &models.ExecutionResult{
		ID:         uuid.New().String(),
		WorkflowID: request.WorkflowID,
		TenantID:   chatCtx.TenantID,
		UserID:     chatCtx.UserID,
		Status:     models.ExecutionStatusStarted,
		StartedAt:  now,
		Result: map[string]any{
			"confirmation_required": true,
			"confirmation_id":       pending.ID,
		},
		FromChat: true,
	}
	result.ChatResponse = o.responder.ConfirmationPrompt(ctx, request.Match, chatCtx, pending.ID)

	o.logger.Info("Confirmation requested",
		"workflow_id", request.WorkflowID,
		"confirmation_id", pending.ID)

	return result, nil
}

// submit reserves a concurrency slot, hands the payload to the engine and
// starts tracking the execution.
func (o *Orchestrator) submit(ctx context.Context, span trace.Span, request *models.ExecutionRequest) (*models.ExecutionResult, error) {
	chatCtx := request.Context

	if !o.tracker.Reserve(chatCtx.TenantID, chatCtx.UserID, o.maxConcurrent) {
		return o.failedResult(ctx, request, permissions.ReasonConcurrencyLimit), nil
	}

	payload := o.builder.Prepare(ctx, request)

	executionID, err := o.engine.Submit(ctx, request.WorkflowID, payload)
	if err != nil {
		o.tracker.CancelReservation(chatCtx.TenantID, chatCtx.UserID)
		otelhelper.SetError(span, err)
		o.logger.Error("Engine rejected submission",
			"workflow_id", request.WorkflowID,
			"error", err)

		return o.failedResult(ctx, request, "workflow engine rejected the execution"), nil
	}

	result := &models.ExecutionResult{
		ID:         executionID,
		WorkflowID: request.WorkflowID,
		TenantID:   chatCtx.TenantID,
		UserID:     chatCtx.UserID,
		Status:     models.ExecutionStatusStarted,
		StartedAt:  o.now(),
		FromChat:   true,
	}

	o.tracker.Track(ctx, result)

	err = o.limiter.Record(ctx, request.Match.RuleID, chatCtx.UserID)
	if err != nil {
		o.logger.Warn("Failed to record rate-limit hit",
			"rule_id", request.Match.RuleID,
			"error", err)
	}

	o.logger.Info("Execution started",
		"execution_id", executionID,
		"workflow_id", request.WorkflowID,
		"user_id", chatCtx.UserID)

	return result, nil
}

// failedResult builds a terminal failed result with a chat-facing error
// response; nothing is tracked for it.
func (o *Orchestrator) failedResult(ctx context.Context, request *models.ExecutionRequest, reason string) *models.ExecutionResult {
	now := o.now()
	result := &models.ExecutionResult{
		ID:         uuid.New().String(),
		WorkflowID: request.WorkflowID,
		TenantID:   request.Context.TenantID,
		UserID:     request.Context.UserID,
		Status:     models.ExecutionStatusFailed,
		Error:      reason,
		StartedAt:  now,
		FinishedAt: &now,
		FromChat:   true,
	}
	result.ChatResponse = o.responder.ErrorResponse(ctx, result, reason)

	return result
}

func (o *Orchestrator) startSpan(ctx context.Context, name string, request *models.ExecutionRequest) (context.Context, trace.Span) {
	return otelhelper.StartSpan(ctx, o.tracer, name,
		attribute.String(otelhelper.WorkflowIDKey, request.WorkflowID),
		attribute.String(otelhelper.TenantIDKey, request.Context.TenantID),
		attribute.String(otelhelper.UserIDKey, request.Context.UserID),
		attribute.String(otelhelper.RuleIDKey, request.Match.RuleID),
		attribute.String(otelhelper.TriggerTypeKey, string(request.Match.TriggerType)),
	)
}
