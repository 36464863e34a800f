package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

func TestRank_PriorityBeforeConfidence(t *testing.T) {
	rules := []*models.TriggerRule{
		{ID: "low", Priority: 1},
		{ID: "high", Priority: 10},
	}
	matches := []*models.TriggerMatch{
		{RuleID: "low", Confidence: 1.0},
		{RuleID: "high", Confidence: 0.8},
	}

	ranked := Rank(matches, rules)

	assert.Equal(t, "high", ranked[0].RuleID, "higher priority wins regardless of confidence")
	assert.Equal(t, "low", ranked[1].RuleID)
}

func TestRank_ConfidenceBreaksPriorityTies(t *testing.T) {
	rules := []*models.TriggerRule{
		{ID: "a", Priority: 5},
		{ID: "b", Priority: 5},
	}
	matches := []*models.TriggerMatch{
		{RuleID: "a", Confidence: 0.8},
		{RuleID: "b", Confidence: 1.0},
	}

	ranked := Rank(matches, rules)

	assert.Equal(t, "b", ranked[0].RuleID)
	assert.Equal(t, "a", ranked[1].RuleID)
}

func TestRank_FullTiesPreserveEvaluationOrder(t *testing.T) {
	rules := []*models.TriggerRule{
		{ID: "first", Priority: 5},
		{ID: "second", Priority: 5},
	}
	matches := []*models.TriggerMatch{
		{RuleID: "first", Confidence: 0.9},
		{RuleID: "second", Confidence: 0.9},
	}

	ranked := Rank(matches, rules)

	assert.Equal(t, "first", ranked[0].RuleID)
	assert.Equal(t, "second", ranked[1].RuleID)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	rules := []*models.TriggerRule{
		{ID: "a", Priority: 1},
		{ID: "b", Priority: 2},
	}
	matches := []*models.TriggerMatch{
		{RuleID: "a", Confidence: 0.8},
		{RuleID: "b", Confidence: 0.8},
	}

	Rank(matches, rules)

	assert.Equal(t, "a", matches[0].RuleID)
	assert.Equal(t, "b", matches[1].RuleID)
}
