package trigger

import (
	"sort"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// Rank orders matches by the originating rule's priority descending, ties
// broken by descending confidence. Full ties preserve evaluation order.
func Rank(matches []*models.TriggerMatch, rules []*models.TriggerRule) []*models.TriggerMatch {
	priorities := make(map[string]int, len(rules))
	for _, rule := range rules {
		priorities[rule.ID] = rule.Priority
	}

	ranked := make([]*models.TriggerMatch, len(matches))
	copy(ranked, matches)

	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := priorities[ranked[i].RuleID], priorities[ranked[j].RuleID]
		if pi != pj {
			return pi > pj
		}

		return ranked[i].Confidence > ranked[j].Confidence
	})

	return ranked
}
