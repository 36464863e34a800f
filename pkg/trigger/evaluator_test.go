package trigger

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/noahsatkunam/chatflow/pkg/mocks"
	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
	"github.com/noahsatkunam/chatflow/pkg/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEvaluator(intents protocol.IntentDetector, directory protocol.Directory) *Evaluator {
	return NewEvaluator(intents, directory, ratelimit.NewMemoryLimiter(), testLogger())
}

func userMessage(text string) *models.ChatTriggerContext {
	return &models.ChatTriggerContext{
		ConversationID: "conv-1",
		MessageID:      "msg-1",
		Text:           text,
		UserID:         "user-1",
		TenantID:       "tenant-1",
		Role:           models.MessageRoleUser,
		Timestamp:      time.Now(),
	}
}

func keywordRule(keywords []string, exact bool) *models.TriggerRule {
	return &models.TriggerRule{
		ID:         "rule-1",
		WorkflowID: "wf-1",
		TenantID:   "tenant-1",
		Name:       "keyword rule",
		Type:       models.TriggerTypeKeyword,
		Config: models.TriggerRuleConfig{
			Keywords:   keywords,
			ExactMatch: exact,
		},
		Active: true,
	}
}

func TestEvaluator_Evaluate_KeywordExactMatch(t *testing.T) {
	evaluator := newTestEvaluator(nil, nil)
	rule := keywordRule([]string{"run"}, true)

	match := evaluator.Evaluate(t.Context(), rule, userMessage("please run it"))
	require.NotNil(t, match)
	assert.Equal(t, "wf-1", match.WorkflowID)
	assert.Equal(t, "run", match.MatchedText)
	assert.InDelta(t, 0.8, match.Confidence, 0.001)

	// "running" contains "run" but is not an exact token.
	assert.Nil(t, evaluator.Evaluate(t.Context(), rule, userMessage("the job is running")))
}

func TestEvaluator_Evaluate_KeywordSubstring(t *testing.T) {
	evaluator := newTestEvaluator(nil, nil)
	rule := keywordRule([]string{"run"}, false)

	match := evaluator.Evaluate(t.Context(), rule, userMessage("the job is running"))
	require.NotNil(t, match)
	assert.Equal(t, models.TriggerTypeKeyword, match.TriggerType)
}

func TestEvaluator_Evaluate_KeywordCaseSensitivity(t *testing.T) {
	evaluator := newTestEvaluator(nil, nil)

	insensitive := keywordRule([]string{"Deploy"}, false)
	assert.NotNil(t, evaluator.Evaluate(t.Context(), insensitive, userMessage("deploy now")))

	sensitive := keywordRule([]string{"Deploy"}, false)
	sensitive.Config.CaseSensitive = true
	assert.Nil(t, evaluator.Evaluate(t.Context(), sensitive, userMessage("deploy now")))
	assert.NotNil(t, evaluator.Evaluate(t.Context(), sensitive, userMessage("Deploy now")))
}

func TestEvaluator_Evaluate_PatternNamedCaptures(t *testing.T) {
	evaluator := newTestEvaluator(nil, nil)
	rule := &models.TriggerRule{
		ID:         "rule-2",
		WorkflowID: "wf-2",
		TenantID:   "tenant-1",
		Type:       models.TriggerTypePattern,
		Config: models.TriggerRuleConfig{
			Patterns: []string{`^/?remind me to (?P<task>.+)$`},
		},
	}

	match := evaluator.Evaluate(t.Context(), rule, userMessage("remind me to call John"))
	require.NotNil(t, match)
	assert.InDelta(t, 0.9, match.Confidence, 0.001)
	assert.Equal(t, "remind me to call John", match.MatchedText)
	require.NotNil(t, match.Parameters)
	assert.Equal(t, "call John", match.Parameters["task"])

	assert.Nil(t, evaluator.Evaluate(t.Context(), rule, userMessage("remind me")))
}

func TestEvaluator_Evaluate_MalformedPatternSkipped(t *testing.T) {
	evaluator := newTestEvaluator(nil, nil)
	rule := &models.TriggerRule{
		ID:       "rule-3",
		TenantID: "tenant-1",
		Type:     models.TriggerTypePattern,
		Config: models.TriggerRuleConfig{
			// The first pattern does not compile; the second still applies.
			Patterns: []string{`deploy (to [`, `deploy to (?P<env>\w+)`},
		},
	}

	match := evaluator.Evaluate(t.Context(), rule, userMessage("deploy to staging"))
	require.NotNil(t, match)
	assert.Equal(t, "staging", match.Parameters["env"])
}

func TestEvaluator_Evaluate_Command(t *testing.T) {
	evaluator := newTestEvaluator(nil, nil)
	rule := &models.TriggerRule{
		ID:       "rule-4",
		TenantID: "tenant-1",
		Type:     models.TriggerTypeCommand,
		Config: models.TriggerRuleConfig{
			Commands: []string{"status"},
		},
	}

	match := evaluator.Evaluate(t.Context(), rule, userMessage("/status 123"))
	require.NotNil(t, match)
	assert.InDelta(t, 1.0, match.Confidence, 0.001)
	assert.Equal(t, "/status", match.MatchedText)
	assert.Equal(t, "status", match.Parameters["command"])
	assert.Equal(t, []string{"123"}, match.Parameters["args"])

	// Without the leading slash the message is not a command.
	assert.Nil(t, evaluator.Evaluate(t.Context(), rule, userMessage("status 123")))
}

func TestEvaluator_Evaluate_Intent(t *testing.T) {
	intents := &mocks.MockIntentDetector{}
	intents.On("DetectIntent", mock.Anything, "I want my money back", mock.Anything).
		Return(&protocol.IntentResult{Intent: "refund_request", Confidence: 0.93}, nil)

	evaluator := newTestEvaluator(intents, nil)
	rule := &models.TriggerRule{
		ID:       "rule-5",
		TenantID: "tenant-1",
		Type:     models.TriggerTypeIntent,
		Config: models.TriggerRuleConfig{
			Intents: []string{"refund_request"},
		},
	}

	match := evaluator.Evaluate(t.Context(), rule, userMessage("I want my money back"))
	require.NotNil(t, match)
	assert.InDelta(t, 0.93, match.Confidence, 0.001)
	assert.Equal(t, "refund_request", match.MatchedText)
}

func TestEvaluator_Evaluate_IntentDetectorFailureSkipsRule(t *testing.T) {
	intents := &mocks.MockIntentDetector{}
	intents.On("DetectIntent", mock.Anything, "hello", mock.Anything).
		Return(nil, assert.AnError)

	evaluator := newTestEvaluator(intents, nil)
	rule := &models.TriggerRule{
		ID:       "rule-6",
		TenantID: "tenant-1",
		Type:     models.TriggerTypeIntent,
		Config:   models.TriggerRuleConfig{Intents: []string{"greeting"}},
	}

	assert.Nil(t, evaluator.Evaluate(t.Context(), rule, userMessage("hello")))
}

func TestEvaluator_Evaluate_AllowedRoles(t *testing.T) {
	directory := &mocks.MockDirectory{}
	directory.On("GetRole", mock.Anything, "user-1", "tenant-1").Return("member", nil)

	evaluator := newTestEvaluator(nil, directory)

	rule := keywordRule([]string{"deploy"}, false)
	rule.Config.AllowedRoles = []string{"admin"}
	assert.Nil(t, evaluator.Evaluate(t.Context(), rule, userMessage("deploy now")))

	rule.Config.AllowedRoles = []string{"admin", "member"}
	assert.NotNil(t, evaluator.Evaluate(t.Context(), rule, userMessage("deploy now")))
}

func TestEvaluator_Evaluate_TimeWindow(t *testing.T) {
	evaluator := newTestEvaluator(nil, nil)
	evaluator.now = func() time.Time {
		return time.Date(2025, 3, 4, 3, 0, 0, 0, time.UTC) // Tuesday 03:00
	}

	rule := keywordRule([]string{"deploy"}, false)
	rule.Config.TimeWindow = &models.TimeWindow{StartHour: 9, EndHour: 17}
	assert.Nil(t, evaluator.Evaluate(t.Context(), rule, userMessage("deploy now")))

	// Window wrapping midnight covers 03:00.
	rule.Config.TimeWindow = &models.TimeWindow{StartHour: 22, EndHour: 6}
	assert.NotNil(t, evaluator.Evaluate(t.Context(), rule, userMessage("deploy now")))

	// Wrong weekday.
	rule.Config.TimeWindow = &models.TimeWindow{StartHour: 0, EndHour: 23, Days: []time.Weekday{time.Sunday}}
	assert.Nil(t, evaluator.Evaluate(t.Context(), rule, userMessage("deploy now")))
}

func TestEvaluator_Evaluate_RateLimit(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter()
	evaluator := NewEvaluator(nil, nil, limiter, testLogger())

	rule := keywordRule([]string{"deploy"}, false)
	rule.Config.RateLimit = &models.RateLimit{MaxExecutions: 2, WindowSeconds: 3600}

	assert.NotNil(t, evaluator.Evaluate(t.Context(), rule, userMessage("deploy now")))

	require.NoError(t, limiter.Record(t.Context(), rule.ID, "user-1"))
	require.NoError(t, limiter.Record(t.Context(), rule.ID, "user-1"))

	assert.Nil(t, evaluator.Evaluate(t.Context(), rule, userMessage("deploy now")))
}

func TestEvaluator_Evaluate_RequiresContext(t *testing.T) {
	evaluator := newTestEvaluator(nil, nil)

	rule := keywordRule([]string{"deploy"}, false)
	rule.Config.RequiresContext = true

	assert.Nil(t, evaluator.Evaluate(t.Context(), rule, userMessage("deploy now")))

	withHistory := userMessage("deploy now")
	withHistory.History = []models.ChatMessage{{Role: models.MessageRoleUser, Text: "hi"}}
	assert.NotNil(t, evaluator.Evaluate(t.Context(), rule, withHistory))
}
