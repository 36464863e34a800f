package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/rulecache"
)

// Detector runs the full detection pass for one inbound message: load the
// tenant's cached rules, evaluate each rule, rank the matches.
type Detector struct {
	cache     *rulecache.Cache
	evaluator *Evaluator
	logger    *slog.Logger
}

// NewDetector creates a trigger detector.
func NewDetector(cache *rulecache.Cache, evaluator *Evaluator, logger *slog.Logger) *Detector {
	return &Detector{
		cache:     cache,
		evaluator: evaluator,
		logger:    logger.With("module", "trigger_detector"),
	}
}

// DetectTriggers evaluates the tenant's rules against the message and returns
// the ranked matches. Bot-authored messages never produce matches. Rule
// evaluation has no side effects, so rules run concurrently; ranking waits for
// all evaluations to finish.
func (d *Detector) DetectTriggers(ctx context.Context, chatCtx *models.ChatTriggerContext) ([]*models.TriggerMatch, error) {
	if chatCtx.Role != models.MessageRoleUser {
		return []*models.TriggerMatch{}, nil
	}

	rules, err := d.cache.GetRules(ctx, chatCtx.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for tenant %s: %w", chatCtx.TenantID, err)
	}

	results := make([]*models.TriggerMatch, len(rules))

	group, groupCtx := errgroup.WithContext(ctx)

	for i, rule := range rules {
		group.Go(func() error {
			results[i] = d.evaluator.Evaluate(groupCtx, rule, chatCtx)

			return nil
		})
	}

	// Evaluate never returns an error; per-rule failures are logged and
	// treated as non-matching.
	_ = group.Wait()

	matches := make([]*models.TriggerMatch, 0, len(results))

	for _, match := range results {
		if match != nil {
			matches = append(matches, match)
		}
	}

	ranked := Rank(matches, rules)

	d.logger.Debug("Completed trigger detection",
		"tenant_id", chatCtx.TenantID,
		"message_id", chatCtx.MessageID,
		"rules_evaluated", len(rules),
		"matches_found", len(ranked))

	return ranked, nil
}
