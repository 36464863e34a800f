package services

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence"
	"github.com/noahsatkunam/chatflow/pkg/persistence/file"
	"github.com/noahsatkunam/chatflow/pkg/rulecache"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newRuleService(t *testing.T) (*Rules, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	cache := rulecache.NewCache(p, rulecache.DefaultTTL, testLogger())

	require.NoError(t, p.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "deploy workflow",
		Status:   models.WorkflowStatusActive,
	}))

	return NewRules(p, cache, validator.New(validator.WithRequiredStructEnabled())), p
}

func keywordRule() *models.TriggerRule {
	return &models.TriggerRule{
		WorkflowID: "wf-1",
		TenantID:   "tenant-1",
		Name:       "deploy on keyword",
		Type:       models.TriggerTypeKeyword,
		Config: models.TriggerRuleConfig{
			Keywords: []string{"deploy"},
		},
		Active:   true,
		Priority: 5,
	}
}

func TestRules_CreateRule(t *testing.T) {
	service, _ := newRuleService(t)

	created, err := service.CreateRule(t.Context(), keywordRule())

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := service.GetRule(t.Context(), "tenant-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "deploy on keyword", got.Name)
}

func TestRules_CreateRule_Nil(t *testing.T) {
	service, _ := newRuleService(t)

	_, err := service.CreateRule(t.Context(), nil)

	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, ErrRuleNil)
}

func TestRules_CreateRule_IgnoresClientID(t *testing.T) {
	service, _ := newRuleService(t)

	rule := keywordRule()
	rule.ID = "client-chosen"

	created, err := service.CreateRule(t.Context(), rule)

	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", created.ID)
}

func TestRules_CreateRule_EmptyConfigRejected(t *testing.T) {
	service, _ := newRuleService(t)

	tests := []struct {
		name string
		rule *models.TriggerRule
	}{
		{"keyword without keywords", func() *models.TriggerRule {
			r := keywordRule()
			r.Config.Keywords = nil
			return r
		}()},
		{"pattern without patterns", func() *models.TriggerRule {
			r := keywordRule()
			r.Type = models.TriggerTypePattern
			r.Config.Keywords = nil
			return r
		}()},
		{"intent without intents", func() *models.TriggerRule {
			r := keywordRule()
			r.Type = models.TriggerTypeIntent
			r.Config.Keywords = nil
			return r
		}()},
		{"command without commands", func() *models.TriggerRule {
			r := keywordRule()
			r.Type = models.TriggerTypeCommand
			r.Config.Keywords = nil
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateRule(t.Context(), tt.rule)

			assert.ErrorIs(t, err, ErrEmptyTriggerConfig)
		})
	}
}

func TestRules_CreateRule_MalformedPatternRejected(t *testing.T) {
	service, _ := newRuleService(t)

	rule := keywordRule()
	rule.Type = models.TriggerTypePattern
	rule.Config.Keywords = nil
	rule.Config.Patterns = []string{"deploy to (?P<env>\\w+)", "([unclosed"}

	_, err := service.CreateRule(t.Context(), rule)

	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestRules_CreateRule_InvalidTimeWindowRejected(t *testing.T) {
	service, _ := newRuleService(t)

	rule := keywordRule()
	rule.Config.TimeWindow = &models.TimeWindow{
		StartHour: 9,
		EndHour:   17,
		Days:      []time.Weekday{time.Weekday(9)},
	}

	_, err := service.CreateRule(t.Context(), rule)

	assert.ErrorIs(t, err, ErrInvalidTimeWindow)
}

func TestRules_CreateRule_InvalidRateLimitRejected(t *testing.T) {
	service, _ := newRuleService(t)

	rule := keywordRule()
	rule.Config.RateLimit = &models.RateLimit{MaxExecutions: 0, WindowSeconds: 60}

	_, err := service.CreateRule(t.Context(), rule)

	assert.ErrorIs(t, err, ErrInvalidRateLimit)
}

func TestRules_CreateRule_UnknownWorkflowRejected(t *testing.T) {
	service, _ := newRuleService(t)

	rule := keywordRule()
	rule.WorkflowID = "wf-missing"

	_, err := service.CreateRule(t.Context(), rule)

	assert.ErrorIs(t, err, ErrWorkflowForRuleGone)
}

func TestRules_UpdateRule_PreservesIdentity(t *testing.T) {
	service, _ := newRuleService(t)

	created, err := service.CreateRule(t.Context(), keywordRule())
	require.NoError(t, err)

	update := keywordRule()
	update.Name = "renamed rule"
	update.ID = "spoofed"

	updated, err := service.UpdateRule(t.Context(), "tenant-1", created.ID, update)

	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "renamed rule", updated.Name)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestRules_UpdateRule_Unknown(t *testing.T) {
	service, _ := newRuleService(t)

	_, err := service.UpdateRule(t.Context(), "tenant-1", "missing", keywordRule())

	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRules_DeleteRule(t *testing.T) {
	service, _ := newRuleService(t)

	created, err := service.CreateRule(t.Context(), keywordRule())
	require.NoError(t, err)

	require.NoError(t, service.DeleteRule(t.Context(), "tenant-1", created.ID))

	_, err = service.GetRule(t.Context(), "tenant-1", created.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)

	assert.ErrorIs(t, service.DeleteRule(t.Context(), "tenant-1", created.ID), ErrRuleNotFound)
}

func TestRules_ListRules_RequiresTenant(t *testing.T) {
	service, _ := newRuleService(t)

	_, err := service.ListRules(t.Context(), "")

	assert.True(t, IsValidationError(err))
}

func TestRules_WritesInvalidateDetectionCache(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	cache := rulecache.NewCache(p, rulecache.DefaultTTL, testLogger())
	service := NewRules(p, cache, validator.New(validator.WithRequiredStructEnabled()))

	require.NoError(t, p.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "deploy workflow",
		Status:   models.WorkflowStatusActive,
	}))

	// Prime the cache while the tenant has no rules.
	rules, err := cache.GetRules(t.Context(), "tenant-1")
	require.NoError(t, err)
	assert.Empty(t, rules)

	created, err := service.CreateRule(t.Context(), keywordRule())
	require.NoError(t, err)

	// The write invalidated the entry, so the new rule is visible immediately.
	rules, err = cache.GetRules(t.Context(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, created.ID, rules[0].ID)
}

func TestRules_HealthCheck(t *testing.T) {
	service, _ := newRuleService(t)

	message, healthy := service.HealthCheck(t.Context())

	assert.True(t, healthy)
	assert.NotEmpty(t, message)
}
