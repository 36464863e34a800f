// Package trigger implements chat-message trigger detection: per-rule
// eligibility checks, type-specific matching and ranking of the results.
package trigger

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
	"github.com/noahsatkunam/chatflow/pkg/ratelimit"
)

// Match confidences per matching strategy. Commands are unambiguous, patterns
// are stronger than keywords, intents report the detector's own confidence.
const (
	keywordConfidence = 0.8
	patternConfidence = 0.9
	commandConfidence = 1.0
)

// Evaluator applies one trigger rule to one inbound message. A failure inside
// a single rule is logged and treated as non-matching; it never aborts the
// surrounding detection pass.
type Evaluator struct {
	intents   protocol.IntentDetector
	directory protocol.Directory
	limiter   ratelimit.Limiter
	logger    *slog.Logger

	now func() time.Time
}

// NewEvaluator creates a trigger evaluator.
func NewEvaluator(intents protocol.IntentDetector, directory protocol.Directory, limiter ratelimit.Limiter, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		intents:   intents,
		directory: directory,
		limiter:   limiter,
		logger:    logger.With("module", "trigger_evaluator"),
		now:       time.Now,
	}
}

// Evaluate returns a match for the rule against the message, or nil when the
// rule is ineligible or does not match.
func (e *Evaluator) Evaluate(ctx context.Context, rule *models.TriggerRule, chatCtx *models.ChatTriggerContext) *models.TriggerMatch {
	if !e.eligible(ctx, rule, chatCtx) {
		return nil
	}

	switch rule.Type {
	case models.TriggerTypeKeyword:
		return e.matchKeyword(rule, chatCtx)
	case models.TriggerTypePattern:
		return e.matchPattern(rule, chatCtx)
	case models.TriggerTypeIntent:
		return e.matchIntent(ctx, rule, chatCtx)
	case models.TriggerTypeCommand:
		return e.matchCommand(rule, chatCtx)
	default:
		e.logger.Warn("Unknown trigger type", "rule_id", rule.ID, "type", rule.Type)

		return nil
	}
}

// eligible runs the basic checks in fixed order, short-circuiting on the
// first failure: allowed roles, time window, rate limit, context requirement.
func (e *Evaluator) eligible(ctx context.Context, rule *models.TriggerRule, chatCtx *models.ChatTriggerContext) bool {
	if len(rule.Config.AllowedRoles) > 0 {
		role, err := e.directory.GetRole(ctx, chatCtx.UserID, chatCtx.TenantID)
		if err != nil {
			e.logger.Warn("Failed to resolve user role, skipping rule",
				"rule_id", rule.ID,
				"user_id", chatCtx.UserID,
				"error", err)

			return false
		}

		if !slices.Contains(rule.Config.AllowedRoles, role) {
			return false
		}
	}

	if !e.withinTimeWindow(rule.Config.TimeWindow) {
		return false
	}

	if !e.withinRateLimit(ctx, rule, chatCtx) {
		return false
	}

	if rule.Config.RequiresContext && !chatCtx.HasHistory() {
		return false
	}

	return true
}

func (e *Evaluator) withinTimeWindow(window *models.TimeWindow) bool {
	if window == nil {
		return true
	}

	now := e.now()
	hour := now.Hour()

	if window.StartHour <= window.EndHour {
		if hour < window.StartHour || hour > window.EndHour {
			return false
		}
	} else {
		// Window wraps midnight, e.g. 22 -> 6.
		if hour > window.EndHour && hour < window.StartHour {
			return false
		}
	}

	if len(window.Days) > 0 && !slices.Contains(window.Days, now.Weekday()) {
		return false
	}

	return true
}

func (e *Evaluator) withinRateLimit(ctx context.Context, rule *models.TriggerRule, chatCtx *models.ChatTriggerContext) bool {
	limit := rule.Config.RateLimit
	if limit == nil {
		return true
	}

	window := time.Duration(limit.WindowSeconds) * time.Second

	count, err := e.limiter.Count(ctx, rule.ID, chatCtx.UserID, window)
	if err != nil {
		e.logger.Warn("Failed to query rate-limit window, skipping rule",
			"rule_id", rule.ID,
			"user_id", chatCtx.UserID,
			"error", err)

		return false
	}

	return count < limit.MaxExecutions
}

func (e *Evaluator) matchKeyword(rule *models.TriggerRule, chatCtx *models.ChatTriggerContext) *models.TriggerMatch {
	text := chatCtx.Text
	if !rule.Config.CaseSensitive {
		text = strings.ToLower(text)
	}

	var tokens []string
	if rule.Config.ExactMatch {
		tokens = strings.Fields(text)
	}

	for _, keyword := range rule.Config.Keywords {
		candidate := keyword
		if !rule.Config.CaseSensitive {
			candidate = strings.ToLower(candidate)
		}

		var hit bool
		if rule.Config.ExactMatch {
			hit = slices.Contains(tokens, candidate)
		} else {
			hit = strings.Contains(text, candidate)
		}

		if hit {
			return newMatch(rule, keywordConfidence, keyword, nil)
		}
	}

	return nil
}

func (e *Evaluator) matchPattern(rule *models.TriggerRule, chatCtx *models.ChatTriggerContext) *models.TriggerMatch {
	for _, pattern := range rule.Config.Patterns {
		expr := pattern
		if !rule.Config.CaseSensitive {
			expr = "(?i)" + expr
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			// A malformed pattern disables itself, not the rule.
			e.logger.Warn("Skipping malformed trigger pattern",
				"rule_id", rule.ID,
				"pattern", pattern,
				"error", err)

			continue
		}

		submatches := re.FindStringSubmatch(chatCtx.Text)
		if submatches == nil {
			continue
		}

		var params map[string]any

		for i, name := range re.SubexpNames() {
			if i == 0 || name == "" || i >= len(submatches) {
				continue
			}

			if params == nil {
				params = make(map[string]any)
			}

			params[name] = submatches[i]
		}

		return newMatch(rule, patternConfidence, submatches[0], params)
	}

	return nil
}

func (e *Evaluator) matchIntent(ctx context.Context, rule *models.TriggerRule, chatCtx *models.ChatTriggerContext) *models.TriggerMatch {
	if e.intents == nil {
		return nil
	}

	result, err := e.intents.DetectIntent(ctx, chatCtx.Text, chatCtx)
	if err != nil {
		e.logger.Warn("Intent detection failed, skipping rule",
			"rule_id", rule.ID,
			"error", err)

		return nil
	}

	if !slices.Contains(rule.Config.Intents, result.Intent) {
		return nil
	}

	return newMatch(rule, result.Confidence, result.Intent, result.Entities)
}

func (e *Evaluator) matchCommand(rule *models.TriggerRule, chatCtx *models.ChatTriggerContext) *models.TriggerMatch {
	text := strings.TrimSpace(chatCtx.Text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	command := strings.TrimPrefix(fields[0], "/")
	if command == "" {
		return nil
	}

	args := fields[1:]

	for _, configured := range rule.Config.Commands {
		if !strings.EqualFold(configured, command) {
			continue
		}

		params := map[string]any{
			"command": command,
			"args":    args,
		}

		return newMatch(rule, commandConfidence, "/"+command, params)
	}

	return nil
}

func newMatch(rule *models.TriggerRule, confidence float64, matchedText string, params map[string]any) *models.TriggerMatch {
	return &models.TriggerMatch{
		WorkflowID:           rule.WorkflowID,
		RuleID:               rule.ID,
		Confidence:           confidence,
		TriggerType:          rule.Type,
		MatchedText:          matchedText,
		Parameters:           params,
		RequiresConfirmation: rule.RequiresConfirmation,
	}
}
