// Package ratelimit provides sliding-window execution counters used by the
// trigger evaluator's per-rule, per-user rate-limit check.
package ratelimit

import (
	"context"
	"time"
)

// Limiter counts workflow executions attributed to a (rule, user) pair within
// a sliding wall-clock window. Counting and recording are separate: the
// evaluator counts during eligibility checks, the orchestrator records once an
// execution actually starts.
type Limiter interface {
	// Count returns how many executions were recorded for the pair within the
	// window ending now.
	Count(ctx context.Context, ruleID, userID string, window time.Duration) (int, error)

	// Record attributes one execution to the pair at the current instant.
	Record(ctx context.Context, ruleID, userID string) error
}
