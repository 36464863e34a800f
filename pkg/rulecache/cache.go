// Package rulecache caches the active trigger rules of a tenant with a fixed
// TTL, reloading from the rule store on expiry and invalidating eagerly on any
// rule write.
package rulecache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence"
)

// DefaultTTL is how long a tenant's rule set stays cached without a write.
const DefaultTTL = 5 * time.Minute

type entry struct {
	rules    []*models.TriggerRule
	loadedAt time.Time
}

// Cache holds per-tenant trigger rules. Reloads are deduplicated: concurrent
// misses for the same tenant trigger at most one load from the store.
type Cache struct {
	persistence persistence.Persistence
	ttl         time.Duration
	logger      *slog.Logger

	mu          sync.RWMutex
	entries     map[string]*entry
	generations map[string]uint64
	group       singleflight.Group

	now func() time.Time
}

// NewCache creates a rule cache over the given persistence layer.
func NewCache(p persistence.Persistence, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		persistence: p,
		ttl:         ttl,
		logger:      logger.With("module", "rule_cache"),
		entries:     make(map[string]*entry),
		generations: make(map[string]uint64),
		now:         time.Now,
	}
}

// GetRules returns the tenant's active rules ordered by priority descending,
// creation time ascending. Load failures surface to the caller; there is no
// stale fallback.
func (c *Cache) GetRules(ctx context.Context, tenantID string) ([]*models.TriggerRule, error) {
	c.mu.RLock()
	cached, ok := c.entries[tenantID]
	c.mu.RUnlock()

	if ok && c.now().Sub(cached.loadedAt) < c.ttl {
		return cached.rules, nil
	}

	rules, err, _ := c.group.Do(tenantID, func() (any, error) {
		return c.load(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}

	return rules.([]*models.TriggerRule), nil
}

// Invalidate drops the tenant's cache entry. Called on every rule write so the
// next read observes the change immediately. Bumping the generation keeps an
// in-flight load from re-caching the rule set it fetched before the write.
func (c *Cache) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.generations[tenantID]++
	c.mu.Unlock()

	c.logger.Debug("Invalidated rule cache", "tenant_id", tenantID)
}

func (c *Cache) load(ctx context.Context, tenantID string) ([]*models.TriggerRule, error) {
	c.mu.RLock()
	generation := c.generations[tenantID]
	c.mu.RUnlock()

	all, err := c.persistence.RuleRepository().RulesByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trigger rules for tenant %s: %w", tenantID, err)
	}

	rules := make([]*models.TriggerRule, 0, len(all))
	workflowActive := make(map[string]bool)

	for _, rule := range all {
		if !rule.Active {
			continue
		}

		active, known := workflowActive[rule.WorkflowID]
		if !known {
			active = c.workflowIsActive(ctx, tenantID, rule.WorkflowID)
			workflowActive[rule.WorkflowID] = active
		}

		if !active {
			continue
		}

		rules = append(rules, rule)
	}

	c.mu.Lock()
	if c.generations[tenantID] == generation {
		c.entries[tenantID] = &entry{rules: rules, loadedAt: c.now()}
	}
	c.mu.Unlock()

	c.logger.Debug("Reloaded rule cache",
		"tenant_id", tenantID,
		"rules_total", len(all),
		"rules_active", len(rules))

	return rules, nil
}

func (c *Cache) workflowIsActive(ctx context.Context, tenantID, workflowID string) bool {
	workflow, err := c.persistence.WorkflowRepository().GetByID(ctx, tenantID, workflowID)
	if err != nil {
		if !persistence.IsWorkflowNotFound(err) {
			c.logger.Warn("Failed to resolve workflow for rule filtering",
				"tenant_id", tenantID,
				"workflow_id", workflowID,
				"error", err)
		}

		return false
	}

	return workflow.IsActive()
}
