// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRuleNotFound indicates a trigger rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("trigger rule not found")

	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrRuleAlreadyExists indicates a rule with the same identifier already exists.
	ErrRuleAlreadyExists = errors.New("trigger rule already exists")
)

// RuleError wraps rule-related storage errors with additional context.
type RuleError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	RuleID   string
	TenantID string
	Err      error
}

func (e *RuleError) Error() string {
	if e.TenantID != "" {
		return fmt.Sprintf("%s operation failed for rule %s in tenant %s: %v", e.Op, e.RuleID, e.TenantID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for rule %s: %v", e.Op, e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for rule errors.
func (e *RuleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRuleError creates a new rule error with context.
func NewRuleError(op, tenantID, ruleID string, err error) *RuleError {
	return &RuleError{
		Op:       op,
		RuleID:   ruleID,
		TenantID: tenantID,
		Err:      err,
	}
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}
