// Package web provides HTTP handlers and REST API endpoints for trigger-rule
// management, trigger detection and execution control.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/noahsatkunam/chatflow/pkg/execution"
	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
	"github.com/noahsatkunam/chatflow/pkg/services"
	"github.com/noahsatkunam/chatflow/pkg/trigger"
)

// TenantHeader carries the tenant scope on rule and execution endpoints.
const TenantHeader = "X-Tenant-ID"

// UserHeader identifies the acting user on cancel and retry endpoints.
const UserHeader = "X-User-ID"

type APIHandlers struct {
	ruleService  *services.Rules
	detector     *trigger.Detector
	orchestrator *execution.Orchestrator
	callbacks    protocol.EngineCallbacks
	validator    *validator.Validate
}

func NewAPIHandlers(
	ruleService *services.Rules,
	detector *trigger.Detector,
	orchestrator *execution.Orchestrator,
	callbacks protocol.EngineCallbacks,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		ruleService:  ruleService,
		detector:     detector,
		orchestrator: orchestrator,
		callbacks:    callbacks,
		validator:    validator,
	}
}

// RegisterRoutes wires all endpoints onto the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	app.Get("/rules", h.GetRules)
	app.Post("/rules", h.CreateRule)
	app.Get("/rules/:id", h.GetRule)
	app.Put("/rules/:id", h.UpdateRule)
	app.Delete("/rules/:id", h.DeleteRule)

	app.Post("/triggers/detect", h.DetectTriggers)

	app.Post("/executions", h.ExecuteWorkflow)
	app.Get("/executions/:id", h.GetExecution)
	app.Delete("/executions/:id", h.CancelExecution)
	app.Post("/executions/:id/retry", h.RetryExecution)
	app.Post("/executions/:id/events", h.ReportExecutionEvent)

	app.Post("/confirmations/:id", h.ResolveConfirmation)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.ruleService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Chatflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Chatflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	tenantID := c.Get(TenantHeader)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	rules, err := h.ruleService.ListRules(c.Context(), tenantID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"rules":       rules,
		"total_count": len(rules),
	})
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	tenantID := c.Get(TenantHeader)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	rule, err := h.ruleService.GetRule(c.Context(), tenantID, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	tenantID := c.Get(TenantHeader)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	var req CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.ruleService.CreateRule(c.Context(), req.toModel(tenantID))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	tenantID := c.Get(TenantHeader)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	var req UpdateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.ruleService.UpdateRule(c.Context(), tenantID, id, req.toModel(tenantID))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	tenantID := c.Get(TenantHeader)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	err := h.ruleService.DeleteRule(c.Context(), tenantID, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DetectTriggers evaluates an incoming chat message against the tenant's
// active rules and returns the ranked matches.
func (h *APIHandlers) DetectTriggers(c fiber.Ctx) error {
	var chatCtx models.ChatTriggerContext
	if err := c.Bind().JSON(&chatCtx); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if chatCtx.TenantID == "" || chatCtx.UserID == "" {
		return badRequest(c, "tenant_id and user_id are required")
	}

	matches, err := h.detector.DetectTriggers(c.Context(), &chatCtx)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"matches":     matches,
		"total_count": len(matches),
	})
}

// ExecuteWorkflow runs the orchestration path for a winning match. Denials
// come back as failed execution results, not HTTP errors.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.orchestrator.ExecuteWorkflow(c.Context(), &models.ExecutionRequest{
		WorkflowID: req.WorkflowID,
		Match:      req.Match,
		Context:    req.Context,
		Parameters: req.Parameters,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	result := h.orchestrator.GetExecutionStatus(id)
	if result == nil {
		return notFound(c, "Execution not found")
	}

	return c.JSON(result)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	tenantID := c.Get(TenantHeader)
	userID := c.Get(UserHeader)

	if tenantID == "" || userID == "" {
		return badRequest(c, "Tenant ID and User ID headers are required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	if !h.orchestrator.CancelExecution(c.Context(), id, userID, tenantID) {
		return forbidden(c, "Execution cannot be cancelled")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RetryExecution(c fiber.Ctx) error {
	tenantID := c.Get(TenantHeader)
	userID := c.Get(UserHeader)

	if tenantID == "" || userID == "" {
		return badRequest(c, "Tenant ID and User ID headers are required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	result := h.orchestrator.RetryExecution(c.Context(), id, userID, tenantID)
	if result == nil {
		return notFound(c, "Execution not found or not in a retryable state")
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}

// ReportExecutionEvent applies a lifecycle event from the workflow engine to
// the tracked execution. Running state, results and failures all arrive here;
// without them an execution would stay started and hold its slot forever.
func (h *APIHandlers) ReportExecutionEvent(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req ExecutionEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if h.orchestrator.GetExecutionStatus(id) == nil {
		return notFound(c, "Execution not found")
	}

	switch req.Type {
	case "started":
		h.callbacks.OnStarted(c.Context(), id)
	case "progress":
		h.callbacks.OnProgress(c.Context(), id, req.Progress)
	case "completed":
		h.callbacks.OnCompleted(c.Context(), id, req.Result)
	case "failed":
		h.callbacks.OnFailed(c.Context(), id, req.Error)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ResolveConfirmation confirms or declines a pending confirmation token.
func (h *APIHandlers) ResolveConfirmation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Confirmation ID is required")
	}

	var req ConfirmRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.orchestrator.HandleUserConfirmation(c.Context(), id, req.Confirmed, req.Context)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}
