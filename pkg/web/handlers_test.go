package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/noahsatkunam/chatflow/pkg/clients"
	"github.com/noahsatkunam/chatflow/pkg/confirmation"
	"github.com/noahsatkunam/chatflow/pkg/execution"
	"github.com/noahsatkunam/chatflow/pkg/mocks"
	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/permissions"
	"github.com/noahsatkunam/chatflow/pkg/persistence/file"
	"github.com/noahsatkunam/chatflow/pkg/ratelimit"
	"github.com/noahsatkunam/chatflow/pkg/rulecache"
	"github.com/noahsatkunam/chatflow/pkg/services"
	"github.com/noahsatkunam/chatflow/pkg/trigger"
)

type apiFixture struct {
	app    *fiber.App
	engine *mocks.MockEngine
}

func setupTestAPI(t *testing.T) *apiFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p := file.NewPersistence(t.TempDir())
	require.NoError(t, p.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "deploy workflow",
		Status:   models.WorkflowStatusActive,
	}))

	cache := rulecache.NewCache(p, rulecache.DefaultTTL, logger)
	limiter := ratelimit.NewMemoryLimiter()
	directory := clients.NewStaticDirectory("member")
	responder := clients.NewTemplateResponder()
	engine := &mocks.MockEngine{}

	evaluator := trigger.NewEvaluator(nil, directory, limiter, logger)
	detector := trigger.NewDetector(cache, evaluator, logger)

	tracker := execution.NewTracker(execution.DefaultGracePeriod, nil, responder, logger)
	resolver := permissions.NewResolver(
		p.WorkflowRepository(),
		directory,
		permissions.NewMemoryGrantStore(),
		tracker,
		permissions.DefaultConfig(),
		logger,
	)

	orchestrator := execution.NewOrchestrator(
		resolver,
		confirmation.NewMemoryStore(),
		tracker,
		execution.NewContextBuilder(nil, logger),
		engine,
		responder,
		limiter,
		permissions.DefaultConfig().MaxConcurrent,
		logger,
		noop.NewTracerProvider().Tracer("test"),
	)

	validate := validator.New(validator.WithRequiredStructEnabled())
	ruleService := services.NewRules(p, cache, validate)

	app := fiber.New()
	NewAPIHandlers(ruleService, detector, orchestrator, tracker, validate).RegisterRoutes(app)

	return &apiFixture{app: app, engine: engine}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createRuleBody() CreateRuleRequest {
	return CreateRuleRequest{
		WorkflowID: "wf-1",
		Name:       "deploy on keyword",
		Type:       models.TriggerTypeKeyword,
		Config: models.TriggerRuleConfig{
			Keywords: []string{"deploy"},
		},
		Active:   true,
		Priority: 5,
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	fixture := setupTestAPI(t)

	resp, err := fixture.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestAPI_CreateRule(t *testing.T) {
	fixture := setupTestAPI(t)

	req := jsonRequest(t, http.MethodPost, "/rules", createRuleBody())
	req.Header.Set(TenantHeader, "tenant-1")

	resp, err := fixture.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.TriggerRule
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "tenant-1", created.TenantID)
}

func TestAPI_CreateRule_MissingTenantHeader(t *testing.T) {
	fixture := setupTestAPI(t)

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/rules", createRuleBody()))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CreateRule_UnknownWorkflow(t *testing.T) {
	fixture := setupTestAPI(t)

	body := createRuleBody()
	body.WorkflowID = "wf-missing"

	req := jsonRequest(t, http.MethodPost, "/rules", body)
	req.Header.Set(TenantHeader, "tenant-1")

	resp, err := fixture.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetRules(t *testing.T) {
	fixture := setupTestAPI(t)

	req := jsonRequest(t, http.MethodPost, "/rules", createRuleBody())
	req.Header.Set(TenantHeader, "tenant-1")
	_, err := fixture.app.Test(req)
	require.NoError(t, err)

	listReq := httptest.NewRequest(http.MethodGet, "/rules", nil)
	listReq.Header.Set(TenantHeader, "tenant-1")

	resp, err := fixture.app.Test(listReq)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Rules      []models.TriggerRule `json:"rules"`
		TotalCount int                  `json:"total_count"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 1, body.TotalCount)
	require.Len(t, body.Rules, 1)
}

func TestAPI_GetRule_NotFound(t *testing.T) {
	fixture := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/rules/missing", nil)
	req.Header.Set(TenantHeader, "tenant-1")

	resp, err := fixture.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_DeleteRule(t *testing.T) {
	fixture := setupTestAPI(t)

	req := jsonRequest(t, http.MethodPost, "/rules", createRuleBody())
	req.Header.Set(TenantHeader, "tenant-1")

	resp, err := fixture.app.Test(req)
	require.NoError(t, err)

	var created models.TriggerRule
	decodeBody(t, resp, &created)

	deleteReq := httptest.NewRequest(http.MethodDelete, "/rules/"+created.ID, nil)
	deleteReq.Header.Set(TenantHeader, "tenant-1")

	resp, err = fixture.app.Test(deleteReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	getReq := httptest.NewRequest(http.MethodGet, "/rules/"+created.ID, nil)
	getReq.Header.Set(TenantHeader, "tenant-1")

	resp, err = fixture.app.Test(getReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_DetectTriggers(t *testing.T) {
	fixture := setupTestAPI(t)

	req := jsonRequest(t, http.MethodPost, "/rules", createRuleBody())
	req.Header.Set(TenantHeader, "tenant-1")
	_, err := fixture.app.Test(req)
	require.NoError(t, err)

	detectReq := jsonRequest(t, http.MethodPost, "/triggers/detect", models.ChatTriggerContext{
		ConversationID: "conv-1",
		Text:           "please deploy the service",
		UserID:         "user-1",
		TenantID:       "tenant-1",
		Role:           models.MessageRoleUser,
	})

	resp, err := fixture.app.Test(detectReq)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Matches    []models.TriggerMatch `json:"matches"`
		TotalCount int                   `json:"total_count"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, 1, body.TotalCount)
	assert.Equal(t, "wf-1", body.Matches[0].WorkflowID)
}

func TestAPI_DetectTriggers_MissingTenant(t *testing.T) {
	fixture := setupTestAPI(t)

	detectReq := jsonRequest(t, http.MethodPost, "/triggers/detect", models.ChatTriggerContext{
		Text:   "deploy",
		UserID: "user-1",
	})

	resp, err := fixture.app.Test(detectReq)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func executeBody() ExecuteRequest {
	return ExecuteRequest{
		WorkflowID: "wf-1",
		Match: &models.TriggerMatch{
			WorkflowID:  "wf-1",
			RuleID:      "rule-1",
			TriggerType: models.TriggerTypeKeyword,
			MatchedText: "deploy",
			Confidence:  0.8,
		},
		Context: &models.ChatTriggerContext{
			ConversationID: "conv-1",
			Text:           "deploy",
			UserID:         "user-1",
			TenantID:       "tenant-1",
			Role:           models.MessageRoleUser,
		},
	}
}

func TestAPI_ExecuteWorkflow(t *testing.T) {
	fixture := setupTestAPI(t)
	fixture.engine.On("Submit", mock.Anything, "wf-1", mock.Anything).Return("exec-1", nil)

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions", executeBody()))
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var result models.ExecutionResult
	decodeBody(t, resp, &result)
	assert.Equal(t, "exec-1", result.ID)
	assert.Equal(t, models.ExecutionStatusStarted, result.Status)

	// The execution is now queryable.
	statusResp, err := fixture.app.Test(httptest.NewRequest(http.MethodGet, "/executions/exec-1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, statusResp.StatusCode)
}

func TestAPI_GetExecution_NotFound(t *testing.T) {
	fixture := setupTestAPI(t)

	resp, err := fixture.app.Test(httptest.NewRequest(http.MethodGet, "/executions/unknown", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CancelExecution(t *testing.T) {
	fixture := setupTestAPI(t)
	fixture.engine.On("Submit", mock.Anything, "wf-1", mock.Anything).Return("exec-1", nil)
	fixture.engine.On("Cancel", mock.Anything, "exec-1", "tenant-1").Return(nil)

	_, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions", executeBody()))
	require.NoError(t, err)

	cancelReq := httptest.NewRequest(http.MethodDelete, "/executions/exec-1", nil)
	cancelReq.Header.Set(TenantHeader, "tenant-1")
	cancelReq.Header.Set(UserHeader, "user-1")

	resp, err := fixture.app.Test(cancelReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_CancelExecution_Forbidden(t *testing.T) {
	fixture := setupTestAPI(t)
	fixture.engine.On("Submit", mock.Anything, "wf-1", mock.Anything).Return("exec-1", nil)

	_, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions", executeBody()))
	require.NoError(t, err)

	// user-2 neither owns the execution nor holds a cancel grant.
	cancelReq := httptest.NewRequest(http.MethodDelete, "/executions/exec-1", nil)
	cancelReq.Header.Set(TenantHeader, "tenant-1")
	cancelReq.Header.Set(UserHeader, "user-2")

	resp, err := fixture.app.Test(cancelReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_RetryExecution_NotRetryable(t *testing.T) {
	fixture := setupTestAPI(t)
	fixture.engine.On("Submit", mock.Anything, "wf-1", mock.Anything).Return("exec-1", nil)

	_, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions", executeBody()))
	require.NoError(t, err)

	retryReq := httptest.NewRequest(http.MethodPost, "/executions/exec-1/retry", nil)
	retryReq.Header.Set(TenantHeader, "tenant-1")
	retryReq.Header.Set(UserHeader, "user-1")

	resp, err := fixture.app.Test(retryReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ExecutionEvents_CompletedTerminatesExecution(t *testing.T) {
	fixture := setupTestAPI(t)
	fixture.engine.On("Submit", mock.Anything, "wf-1", mock.Anything).Return("exec-1", nil)

	_, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions", executeBody()))
	require.NoError(t, err)

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions/exec-1/events", ExecutionEventRequest{
		Type: "started",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions/exec-1/events", ExecutionEventRequest{
		Type:   "completed",
		Result: map[string]any{"deployed": true},
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	statusResp, err := fixture.app.Test(httptest.NewRequest(http.MethodGet, "/executions/exec-1", nil))
	require.NoError(t, err)

	var result models.ExecutionResult
	decodeBody(t, statusResp, &result)
	assert.Equal(t, models.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, map[string]any{"deployed": true}, result.Result)
	require.NotNil(t, result.FinishedAt)
}

func TestAPI_ExecutionEvents_FailedRecordsError(t *testing.T) {
	fixture := setupTestAPI(t)
	fixture.engine.On("Submit", mock.Anything, "wf-1", mock.Anything).Return("exec-1", nil)

	_, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions", executeBody()))
	require.NoError(t, err)

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions/exec-1/events", ExecutionEventRequest{
		Type:  "failed",
		Error: "step 3 timed out",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	statusResp, err := fixture.app.Test(httptest.NewRequest(http.MethodGet, "/executions/exec-1", nil))
	require.NoError(t, err)

	var result models.ExecutionResult
	decodeBody(t, statusResp, &result)
	assert.Equal(t, models.ExecutionStatusFailed, result.Status)
	assert.Equal(t, "step 3 timed out", result.Error)
}

func TestAPI_ExecutionEvents_UnknownExecution(t *testing.T) {
	fixture := setupTestAPI(t)

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions/unknown/events", ExecutionEventRequest{
		Type: "completed",
	}))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ExecutionEvents_InvalidType(t *testing.T) {
	fixture := setupTestAPI(t)
	fixture.engine.On("Submit", mock.Anything, "wf-1", mock.Anything).Return("exec-1", nil)

	_, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions", executeBody()))
	require.NoError(t, err)

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions/exec-1/events", ExecutionEventRequest{
		Type: "paused",
	}))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ResolveConfirmation_Unknown(t *testing.T) {
	fixture := setupTestAPI(t)

	body := ConfirmRequest{
		Confirmed: true,
		Context: &models.ChatTriggerContext{
			ConversationID: "conv-1",
			Text:           "yes",
			UserID:         "user-1",
			TenantID:       "tenant-1",
			Role:           models.MessageRoleUser,
		},
	}

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/confirmations/unknown", body))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ConfirmationRoundTrip(t *testing.T) {
	fixture := setupTestAPI(t)
	fixture.engine.On("Submit", mock.Anything, "wf-1", mock.Anything).Return("exec-1", nil)

	body := executeBody()
	body.Match.RequiresConfirmation = true

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/executions", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var prompted models.ExecutionResult
	decodeBody(t, resp, &prompted)

	confirmationID, ok := prompted.Result["confirmation_id"].(string)
	require.True(t, ok)

	confirmBody := ConfirmRequest{
		Confirmed: true,
		Context:   body.Context,
	}

	resp, err = fixture.app.Test(jsonRequest(t, http.MethodPost, "/confirmations/"+confirmationID, confirmBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.ExecutionResult
	decodeBody(t, resp, &result)
	assert.Equal(t, "exec-1", result.ID)
}
