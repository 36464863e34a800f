package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence"
)

// RuleRepository stores trigger rules as one JSON file per rule, grouped in a
// directory per tenant.
type RuleRepository struct {
	root string
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(root string) *RuleRepository {
	return &RuleRepository{root: root}
}

func (rr *RuleRepository) tenantDir(tenantID string) string {
	return filepath.Join(rr.root, "rules", tenantID)
}

func (rr *RuleRepository) rulePath(tenantID, id string) string {
	return filepath.Join(rr.tenantDir(tenantID), id+".json")
}

// RulesByTenant loads all rules for the tenant ordered by priority descending,
// creation time ascending.
func (rr *RuleRepository) RulesByTenant(ctx context.Context, tenantID string) ([]*models.TriggerRule, error) {
	dir := rr.tenantDir(tenantID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make([]*models.TriggerRule, 0), nil
		}

		return nil, persistence.NewRuleError("RulesByTenant", tenantID, "", err)
	}

	rules := make([]*models.TriggerRule, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		id := entry.Name()[:len(entry.Name())-5]

		rule, err := rr.GetByID(ctx, tenantID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule %s: %w", id, err)
		}

		rules = append(rules, rule)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}

		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	return rules, nil
}

// GetByID loads a single rule by tenant and id.
func (rr *RuleRepository) GetByID(_ context.Context, tenantID, id string) (*models.TriggerRule, error) {
	data, err := os.ReadFile(rr.rulePath(tenantID, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewRuleError("GetByID", tenantID, id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewRuleError("GetByID", tenantID, id, err)
	}

	var rule models.TriggerRule

	err = json.Unmarshal(data, &rule)
	if err != nil {
		return nil, persistence.NewRuleError("GetByID", tenantID, id, err)
	}

	return &rule, nil
}

// Save writes the rule to disk, creating the tenant directory on first use.
func (rr *RuleRepository) Save(_ context.Context, rule *models.TriggerRule) error {
	err := os.MkdirAll(rr.tenantDir(rule.TenantID), 0o755)
	if err != nil {
		return persistence.NewRuleError("Save", rule.TenantID, rule.ID, err)
	}

	data, err := json.MarshalIndent(rule, "", "  ")
	if err != nil {
		return persistence.NewRuleError("Save", rule.TenantID, rule.ID, err)
	}

	err = os.WriteFile(rr.rulePath(rule.TenantID, rule.ID), data, 0o644)
	if err != nil {
		return persistence.NewRuleError("Save", rule.TenantID, rule.ID, err)
	}

	return nil
}

// Delete removes the rule file.
func (rr *RuleRepository) Delete(_ context.Context, tenantID, id string) error {
	err := os.Remove(rr.rulePath(tenantID, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewRuleError("Delete", tenantID, id, persistence.ErrRuleNotFound)
		}

		return persistence.NewRuleError("Delete", tenantID, id, err)
	}

	return nil
}
