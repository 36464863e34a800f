package rulecache

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/noahsatkunam/chatflow/pkg/mocks"
	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func seedRule(t *testing.T, persistence *file.Persistence, id string, active bool) {
	t.Helper()

	err := persistence.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID:       "wf-" + id,
		TenantID: "tenant-1",
		Name:     "workflow " + id,
		Status:   models.WorkflowStatusActive,
	})
	require.NoError(t, err)

	err = persistence.RuleRepository().Save(t.Context(), &models.TriggerRule{
		ID:         id,
		WorkflowID: "wf-" + id,
		TenantID:   "tenant-1",
		Name:       "rule " + id,
		Type:       models.TriggerTypeKeyword,
		Config:     models.TriggerRuleConfig{Keywords: []string{"go"}},
		Active:     active,
	})
	require.NoError(t, err)
}

func TestCache_GetRules_FiltersInactiveRules(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())
	cache := NewCache(persistence, DefaultTTL, testLogger())

	seedRule(t, persistence, "active-rule", true)
	seedRule(t, persistence, "inactive-rule", false)

	rules, err := cache.GetRules(t.Context(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "active-rule", rules[0].ID)
}

func TestCache_GetRules_ServesCachedUntilTTL(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())
	cache := NewCache(persistence, DefaultTTL, testLogger())

	base := time.Now()
	cache.now = func() time.Time { return base }

	seedRule(t, persistence, "rule-1", true)

	rules, err := cache.GetRules(t.Context(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)

	// A rule written behind the cache's back is invisible within the TTL.
	seedRule(t, persistence, "rule-2", true)

	rules, err = cache.GetRules(t.Context(), "tenant-1")
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	// Past the TTL the next read reloads.
	cache.now = func() time.Time { return base.Add(DefaultTTL + time.Second) }

	rules, err = cache.GetRules(t.Context(), "tenant-1")
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestCache_Invalidate_ForcesReload(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())
	cache := NewCache(persistence, DefaultTTL, testLogger())

	seedRule(t, persistence, "rule-1", true)

	rules, err := cache.GetRules(t.Context(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)

	seedRule(t, persistence, "rule-2", true)
	cache.Invalidate("tenant-1")

	rules, err = cache.GetRules(t.Context(), "tenant-1")
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestCache_Invalidate_DuringLoadDiscardsStaleResult(t *testing.T) {
	persistence := mocks.NewMockPersistence()
	cache := NewCache(persistence, DefaultTTL, testLogger())

	oldRules := []*models.TriggerRule{{
		ID:         "rule-old",
		WorkflowID: "wf-1",
		TenantID:   "tenant-1",
		Type:       models.TriggerTypeKeyword,
		Active:     true,
	}}
	newRules := []*models.TriggerRule{{
		ID:         "rule-new",
		WorkflowID: "wf-1",
		TenantID:   "tenant-1",
		Type:       models.TriggerTypeKeyword,
		Active:     true,
	}}

	persistence.Workflows.On("GetByID", mock.Anything, "tenant-1", "wf-1").
		Return(&models.Workflow{ID: "wf-1", TenantID: "tenant-1", Status: models.WorkflowStatusActive}, nil)

	loading := make(chan struct{})
	release := make(chan struct{})

	persistence.Rules.On("RulesByTenant", mock.Anything, "tenant-1").
		Run(func(mock.Arguments) {
			close(loading)
			<-release
		}).
		Return(oldRules, nil).
		Once()
	persistence.Rules.On("RulesByTenant", mock.Anything, "tenant-1").
		Return(newRules, nil)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = cache.GetRules(t.Context(), "tenant-1")
	}()

	// A rule write lands while the first load is still fetching.
	<-loading
	cache.Invalidate("tenant-1")
	close(release)
	<-done

	// The stale result must not have been re-cached: the next read reloads.
	rules, err := cache.GetRules(t.Context(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "rule-new", rules[0].ID)
}

func TestCache_GetRules_LoadFailureSurfaces(t *testing.T) {
	persistence := mocks.NewMockPersistence()
	persistence.Rules.On("RulesByTenant", t.Context(), "tenant-1").Return(nil, assert.AnError)

	cache := NewCache(persistence, DefaultTTL, testLogger())

	_, err := cache.GetRules(t.Context(), "tenant-1")
	assert.ErrorIs(t, err, assert.AnError)
}
