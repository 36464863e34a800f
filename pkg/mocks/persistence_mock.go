package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence"
)

// MockRuleRepository is a mock implementation of persistence.RuleRepository.
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) RulesByTenant(ctx context.Context, tenantID string) ([]*models.TriggerRule, error) {
	args := m.Called(ctx, tenantID)

	rules, _ := args.Get(0).([]*models.TriggerRule)

	return rules, args.Error(1)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, tenantID, id string) (*models.TriggerRule, error) {
	args := m.Called(ctx, tenantID, id)

	rule, _ := args.Get(0).(*models.TriggerRule)

	return rule, args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *models.TriggerRule) error {
	args := m.Called(ctx, rule)

	return args.Error(0)
}

func (m *MockRuleRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Workflow, error) {
	args := m.Called(ctx, tenantID, id)

	workflow, _ := args.Get(0).(*models.Workflow)

	return workflow, args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock

	Rules     *MockRuleRepository
	Workflows *MockWorkflowRepository
}

// NewMockPersistence wires fresh repository mocks.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Rules:     &MockRuleRepository{},
		Workflows: &MockWorkflowRepository{},
	}
}

func (m *MockPersistence) RuleRepository() persistence.RuleRepository {
	return m.Rules
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
