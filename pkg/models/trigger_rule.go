// Package models defines the core domain models for chat-triggered workflow automation.
package models

import "time"

// TriggerType identifies the matching strategy a rule uses against a chat message.
type TriggerType string

const (
	TriggerTypeKeyword TriggerType = "keyword"
	TriggerTypePattern TriggerType = "pattern"
	TriggerTypeIntent  TriggerType = "intent"
	TriggerTypeCommand TriggerType = "command"
)

// TimeWindow restricts a rule to a daily hour range and a set of weekdays.
// Hours are in the 24h clock; an empty day set means every day.
type TimeWindow struct {
	StartHour int            `json:"start_hour" validate:"min=0,max=23"`
	EndHour   int            `json:"end_hour"   validate:"min=0,max=23"`
	Days      []time.Weekday `json:"days,omitempty"`
}

// RateLimit caps how often a single user may fire a rule within a sliding window.
type RateLimit struct {
	MaxExecutions int `json:"max_executions" validate:"min=1"`
	WindowSeconds int `json:"window_seconds" validate:"min=1"`
}

// TriggerRuleConfig holds the type-specific matching configuration for a rule.
// Only the fields for the rule's TriggerType are consulted.
type TriggerRuleConfig struct {
	Keywords        []string `json:"keywords,omitempty"`
	Patterns        []string `json:"patterns,omitempty"`
	Intents         []string `json:"intents,omitempty"`
	Commands        []string `json:"commands,omitempty"`
	CaseSensitive   bool     `json:"case_sensitive,omitempty"`
	ExactMatch      bool     `json:"exact_match,omitempty"`
	RequiresContext bool     `json:"requires_context,omitempty"`

	AllowedRoles []string    `json:"allowed_roles,omitempty"`
	TimeWindow   *TimeWindow `json:"time_window,omitempty"`
	RateLimit    *RateLimit  `json:"rate_limit,omitempty"`
}

// TriggerRule is a tenant-configured condition that proposes running a workflow
// when it matches an inbound chat message.
type TriggerRule struct {
	ID                   string            `json:"id"`
	WorkflowID           string            `json:"workflow_id" validate:"required"`
	TenantID             string            `json:"tenant_id"   validate:"required"`
	Name                 string            `json:"name"        validate:"required,min=3"`
	Type                 TriggerType       `json:"type"        validate:"required,oneof=keyword pattern intent command"`
	Config               TriggerRuleConfig `json:"config"`
	Active               bool              `json:"active"`
	Priority             int               `json:"priority"`
	RequiresConfirmation bool              `json:"requires_confirmation"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}
