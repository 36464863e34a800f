// Package mocks provides testify mocks for the collaborator contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
)

// MockEngine is a mock implementation of the protocol.Engine interface.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Submit(ctx context.Context, workflowID string, payload *models.ExecutionPayload) (string, error) {
	args := m.Called(ctx, workflowID, payload)

	return args.String(0), args.Error(1)
}

func (m *MockEngine) Cancel(ctx context.Context, executionID, tenantID string) error {
	args := m.Called(ctx, executionID, tenantID)

	return args.Error(0)
}

func (m *MockEngine) Retry(ctx context.Context, executionID, tenantID string) (string, error) {
	args := m.Called(ctx, executionID, tenantID)

	return args.String(0), args.Error(1)
}

// MockIntentDetector is a mock implementation of the protocol.IntentDetector interface.
type MockIntentDetector struct {
	mock.Mock
}

func (m *MockIntentDetector) DetectIntent(ctx context.Context, text string, chatCtx *models.ChatTriggerContext) (*protocol.IntentResult, error) {
	args := m.Called(ctx, text, chatCtx)

	result, _ := args.Get(0).(*protocol.IntentResult)

	return result, args.Error(1)
}

// MockDirectory is a mock implementation of the protocol.Directory interface.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetRole(ctx context.Context, userID, tenantID string) (string, error) {
	args := m.Called(ctx, userID, tenantID)

	return args.String(0), args.Error(1)
}

// MockResponseGenerator is a mock implementation of the protocol.ResponseGenerator interface.
type MockResponseGenerator struct {
	mock.Mock
}

func (m *MockResponseGenerator) ConfirmationPrompt(ctx context.Context, match *models.TriggerMatch, chatCtx *models.ChatTriggerContext, confirmationID string) *models.ChatResponse {
	args := m.Called(ctx, match, chatCtx, confirmationID)

	response, _ := args.Get(0).(*models.ChatResponse)

	return response
}

func (m *MockResponseGenerator) SuccessResponse(ctx context.Context, execution *models.ExecutionResult) *models.ChatResponse {
	args := m.Called(ctx, execution)

	response, _ := args.Get(0).(*models.ChatResponse)

	return response
}

func (m *MockResponseGenerator) ErrorResponse(ctx context.Context, execution *models.ExecutionResult, reason string) *models.ChatResponse {
	args := m.Called(ctx, execution, reason)

	response, _ := args.Get(0).(*models.ChatResponse)

	return response
}

func (m *MockResponseGenerator) CancellationResponse(ctx context.Context, execution *models.ExecutionResult) *models.ChatResponse {
	args := m.Called(ctx, execution)

	response, _ := args.Get(0).(*models.ChatResponse)

	return response
}

// MockContextProvider is a mock implementation of the protocol.ContextProvider interface.
type MockContextProvider struct {
	mock.Mock
}

func (m *MockContextProvider) ConversationContext(ctx context.Context, conversationID, tenantID string) (map[string]any, error) {
	args := m.Called(ctx, conversationID, tenantID)

	result, _ := args.Get(0).(map[string]any)

	return result, args.Error(1)
}

func (m *MockContextProvider) UserContext(ctx context.Context, userID, tenantID string) (map[string]any, error) {
	args := m.Called(ctx, userID, tenantID)

	result, _ := args.Get(0).(map[string]any)

	return result, args.Error(1)
}
