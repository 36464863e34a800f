package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence"
	"github.com/noahsatkunam/chatflow/pkg/rulecache"
)

// Rules is the trigger-rule management service. Every write invalidates the
// tenant's rule-cache entry so the detection path picks changes up on its next
// load instead of waiting out the TTL.
type Rules struct {
	persistence persistence.Persistence
	cache       *rulecache.Cache
	validator   *validator.Validate
}

// NewRules creates a new rule service.
func NewRules(persistence persistence.Persistence, cache *rulecache.Cache, validate *validator.Validate) *Rules {
	return &Rules{
		persistence: persistence,
		cache:       cache,
		validator:   validate,
	}
}

// HealthCheck checks the health of the persistence layer.
func (r *Rules) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := r.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListRules returns all rules for a tenant in evaluation order.
func (r *Rules) ListRules(ctx context.Context, tenantID string) ([]*models.TriggerRule, error) {
	if tenantID == "" {
		return nil, NewValidationError("ListRules", "TENANT_REQUIRED", "tenant id is required", ErrInvalidRequest)
	}

	rules, err := r.persistence.RuleRepository().RulesByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return rules, nil
}

// GetRule returns one rule by id within a tenant.
func (r *Rules) GetRule(ctx context.Context, tenantID, id string) (*models.TriggerRule, error) {
	rule, err := r.persistence.RuleRepository().GetByID(ctx, tenantID, id)
	if err != nil {
		if persistence.IsRuleNotFound(err) {
			return nil, ErrRuleNotFound
		}

		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// CreateRule validates and persists a new rule. The id is assigned here; a
// client-supplied id is ignored.
func (r *Rules) CreateRule(ctx context.Context, rule *models.TriggerRule) (*models.TriggerRule, error) {
	if rule == nil {
		return nil, NewValidationError("CreateRule", "RULE_NIL", "rule cannot be nil", ErrRuleNil)
	}

	now := time.Now().UTC()
	rule.ID = uuid.New().String()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	err := r.validateRule(ctx, "CreateRule", rule)
	if err != nil {
		return nil, err
	}

	err = r.persistence.RuleRepository().Save(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	r.cache.Invalidate(rule.TenantID)

	return rule, nil
}

// UpdateRule validates and persists changes to an existing rule. Identity and
// creation time are taken from the stored rule.
func (r *Rules) UpdateRule(ctx context.Context, tenantID, id string, rule *models.TriggerRule) (*models.TriggerRule, error) {
	if rule == nil {
		return nil, NewValidationError("UpdateRule", "RULE_NIL", "rule cannot be nil", ErrRuleNil)
	}

	existing, err := r.GetRule(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	rule.ID = existing.ID
	rule.TenantID = existing.TenantID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()

	err = r.validateRule(ctx, "UpdateRule", rule)
	if err != nil {
		return nil, err
	}

	err = r.persistence.RuleRepository().Save(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	r.cache.Invalidate(tenantID)

	return rule, nil
}

// DeleteRule removes a rule from a tenant.
func (r *Rules) DeleteRule(ctx context.Context, tenantID, id string) error {
	err := r.persistence.RuleRepository().Delete(ctx, tenantID, id)
	if err != nil {
		if persistence.IsRuleNotFound(err) {
			return ErrRuleNotFound
		}

		return fmt.Errorf("failed to delete rule: %w", err)
	}

	r.cache.Invalidate(tenantID)

	return nil
}

// validateRule runs struct validation, the per-type config schema, and the
// semantic checks the schema cannot express.
func (r *Rules) validateRule(ctx context.Context, op string, rule *models.TriggerRule) error {
	err := r.validator.Struct(rule)
	if err != nil {
		return NewValidationError(op, "INVALID_RULE", err.Error(), ErrInvalidRequest)
	}

	if strings.TrimSpace(rule.Name) == "" {
		return NewValidationError(op, "NAME_REQUIRED", "rule name is required", ErrRuleNameRequired)
	}

	err = r.validateConfigSchema(op, rule)
	if err != nil {
		return err
	}

	err = r.validateConfigSemantics(op, rule)
	if err != nil {
		return err
	}

	// Inactive workflows may still carry rules; the cache filters them out at
	// detection time. Only nonexistent workflows are rejected here.
	_, err = r.persistence.WorkflowRepository().GetByID(ctx, rule.TenantID, rule.WorkflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return NewValidationError(op, "UNKNOWN_WORKFLOW",
				fmt.Sprintf("workflow %q does not exist in tenant %q", rule.WorkflowID, rule.TenantID),
				ErrWorkflowForRuleGone)
		}

		return fmt.Errorf("failed to resolve workflow for rule: %w", err)
	}

	return nil
}

// configSchemas maps each trigger type to the JSON schema its config section
// must satisfy. The schemas require the type's own list to be non-empty; the
// other lists are irrelevant and allowed to be absent.
var configSchemas = map[models.TriggerType]map[string]any{
	models.TriggerTypeKeyword: {
		"type":     "object",
		"required": []any{"keywords"},
		"properties": map[string]any{
			"keywords": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
		},
	},
	models.TriggerTypePattern: {
		"type":     "object",
		"required": []any{"patterns"},
		"properties": map[string]any{
			"patterns": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
		},
	},
	models.TriggerTypeIntent: {
		"type":     "object",
		"required": []any{"intents"},
		"properties": map[string]any{
			"intents": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
		},
	},
	models.TriggerTypeCommand: {
		"type":     "object",
		"required": []any{"commands"},
		"properties": map[string]any{
			"commands": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
		},
	},
}

func (r *Rules) validateConfigSchema(op string, rule *models.TriggerRule) error {
	schema, ok := configSchemas[rule.Type]
	if !ok {
		return NewValidationError(op, "UNKNOWN_TRIGGER_TYPE",
			fmt.Sprintf("unknown trigger type %q", rule.Type), ErrUnknownTriggerType)
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(configDocument(rule))

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate rule config: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return NewValidationError(op, "EMPTY_TRIGGER_CONFIG",
			strings.Join(details, "; "), ErrEmptyTriggerConfig)
	}

	return nil
}

// configDocument projects the config into the shape the schemas inspect.
func configDocument(rule *models.TriggerRule) map[string]any {
	doc := map[string]any{}

	if len(rule.Config.Keywords) > 0 {
		doc["keywords"] = rule.Config.Keywords
	}

	if len(rule.Config.Patterns) > 0 {
		doc["patterns"] = rule.Config.Patterns
	}

	if len(rule.Config.Intents) > 0 {
		doc["intents"] = rule.Config.Intents
	}

	if len(rule.Config.Commands) > 0 {
		doc["commands"] = rule.Config.Commands
	}

	return doc
}

func (r *Rules) validateConfigSemantics(op string, rule *models.TriggerRule) error {
	if rule.Type == models.TriggerTypePattern {
		for _, pattern := range rule.Config.Patterns {
			_, err := regexp.Compile(pattern)
			if err != nil {
				return NewValidationError(op, "INVALID_PATTERN",
					fmt.Sprintf("pattern %q does not compile: %v", pattern, err), ErrInvalidPattern)
			}
		}
	}

	if window := rule.Config.TimeWindow; window != nil {
		for _, day := range window.Days {
			if day < time.Sunday || day > time.Saturday {
				return NewValidationError(op, "INVALID_TIME_WINDOW",
					fmt.Sprintf("invalid weekday %d", day), ErrInvalidTimeWindow)
			}
		}
	}

	if limit := rule.Config.RateLimit; limit != nil {
		if limit.MaxExecutions < 1 || limit.WindowSeconds < 1 {
			return NewValidationError(op, "INVALID_RATE_LIMIT",
				"max_executions and window_seconds must be positive", ErrInvalidRateLimit)
		}
	}

	return nil
}
