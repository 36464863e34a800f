package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence"
)

// RuleRepository handles trigger-rule database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

// RulesByTenant returns all rules for the tenant ordered by priority
// descending, creation time ascending.
func (r *RuleRepository) RulesByTenant(ctx context.Context, tenantID string) ([]*models.TriggerRule, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , tenant_id
		  , name
		  , type
		  , config
		  , active
		  , priority
		  , requires_confirmation
		  , created_at
		  , updated_at
		FROM trigger_rules
		WHERE tenant_id = $1
		ORDER BY priority DESC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, persistence.NewRuleError("RulesByTenant", tenantID, "", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.TriggerRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, persistence.NewRuleError("RulesByTenant", tenantID, "", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewRuleError("RulesByTenant", tenantID, "", err)
	}

	return rules, nil
}

// GetByID returns a single rule by tenant and id.
func (r *RuleRepository) GetByID(ctx context.Context, tenantID, id string) (*models.TriggerRule, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , tenant_id
		  , name
		  , type
		  , config
		  , active
		  , priority
		  , requires_confirmation
		  , created_at
		  , updated_at
		FROM trigger_rules
		WHERE tenant_id = $1 AND id = $2
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRuleError("GetByID", tenantID, id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewRuleError("GetByID", tenantID, id, err)
	}

	return rule, nil
}

// Save upserts the rule.
func (r *RuleRepository) Save(ctx context.Context, rule *models.TriggerRule) error {
	config, err := json.Marshal(rule.Config)
	if err != nil {
		return persistence.NewRuleError("Save", rule.TenantID, rule.ID, err)
	}

	query := `
		INSERT INTO trigger_rules
			(id, workflow_id, tenant_id, name, type, config, active, priority, requires_confirmation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			config = EXCLUDED.config,
			active = EXCLUDED.active,
			priority = EXCLUDED.priority,
			requires_confirmation = EXCLUDED.requires_confirmation,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.WorkflowID, rule.TenantID, rule.Name, string(rule.Type), config,
		rule.Active, rule.Priority, rule.RequiresConfirmation, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return persistence.NewRuleError("Save", rule.TenantID, rule.ID, err)
	}

	return nil
}

// Delete removes the rule.
func (r *RuleRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM trigger_rules WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return persistence.NewRuleError("Delete", tenantID, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRuleError("Delete", tenantID, id, err)
	}

	if affected == 0 {
		return persistence.NewRuleError("Delete", tenantID, id, persistence.ErrRuleNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.TriggerRule, error) {
	var (
		rule      models.TriggerRule
		ruleType  string
		config    []byte
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&rule.ID, &rule.WorkflowID, &rule.TenantID, &rule.Name, &ruleType,
		&config, &rule.Active, &rule.Priority, &rule.RequiresConfirmation, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(config, &rule.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule config: %w", err)
	}

	rule.Type = models.TriggerType(ruleType)
	rule.CreatedAt = createdAt
	rule.UpdatedAt = updatedAt

	return &rule, nil
}
