// Package services provides the rule-management service layer and its
// standardized error types.
package services

import (
	"errors"
	"fmt"

	"github.com/noahsatkunam/chatflow/pkg/persistence"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest      = errors.New("invalid request")
	ErrRuleNil             = errors.New("rule cannot be nil")
	ErrRuleNameRequired    = errors.New("rule name is required")
	ErrUnknownTriggerType  = errors.New("unknown trigger type")
	ErrEmptyTriggerConfig  = errors.New("trigger config has no entries for its type")
	ErrInvalidPattern      = errors.New("pattern does not compile")
	ErrInvalidTimeWindow   = errors.New("invalid time window")
	ErrInvalidRateLimit    = errors.New("invalid rate limit")
	ErrWorkflowForRuleGone = errors.New("rule references an unknown workflow")

	// Not-found errors (404 Not Found).
	ErrRuleNotFound = persistence.ErrRuleNotFound

	// Business logic conflicts (409 Conflict).
	ErrRuleAlreadyExists = persistence.ErrRuleAlreadyExists
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrRuleNil) ||
		errors.Is(err, ErrRuleNameRequired) ||
		errors.Is(err, ErrUnknownTriggerType) ||
		errors.Is(err, ErrEmptyTriggerConfig) ||
		errors.Is(err, ErrInvalidPattern) ||
		errors.Is(err, ErrInvalidTimeWindow) ||
		errors.Is(err, ErrInvalidRateLimit) ||
		errors.Is(err, ErrWorkflowForRuleGone)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrRuleAlreadyExists)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
