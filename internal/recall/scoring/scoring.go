// Package scoring normalizes heterogeneous raw relevance scores onto a
// common 0-1 scale, applies exponential recency decay, and reinforces hits
// that have proven useful before.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/joelhooks/joelclaw-sub003/internal/domain/hit"
	"github.com/joelhooks/joelclaw-sub003/internal/domain/observation"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/limits"
)

// Rank annotates raw hits with derived scores and returns them sorted
// descending by decayed score. The sort is stable: ties keep their index
// relative order.
func Rank(l *limits.Limits, hits []hit.Raw, now time.Time) []hit.Ranked {
	ranked := make([]hit.Ranked, 0, len(hits))
	for _, raw := range hits {
		obs := raw.Observation()
		norm := NormalizeRaw(l, raw)
		boost := UsageBoost(l, &obs)
		decayed := norm * math.Exp(-l.DecayPerDay*ageDays(&obs, now)) * boost
		ranked = append(ranked, hit.NewRanked(raw, norm, boost, decayed))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DecayedScore() > ranked[j].DecayedScore()
	})
	return ranked
}

// NormalizeRaw maps the index's relevance signals onto [0, 1]. A non-negative
// fusion score is already on that scale and wins; a raw text-match score
// above 1 is divided by the empirical scale constant and clamped.
func NormalizeRaw(l *limits.Limits, raw hit.Raw) float64 {
	if fusion, ok := raw.FusionScore(); ok && fusion >= 0 {
		return fusion
	}
	text, ok := raw.TextScore()
	if !ok {
		return 0
	}
	if text > 1 {
		return math.Min(1, text/l.TextScoreScale)
	}
	return text
}

// UsageBoost derives the reinforcement multiplier from prior recall
// frequency and the stored retrieval-priority signal. Always >= MinUsageBoost.
func UsageBoost(l *limits.Limits, obs *observation.Observation) float64 {
	priorityFactor := 1 + obs.RetrievalPriority()*l.PriorityWeight
	recallFactor := 1 + math.Min(
		l.MaxRecallBonus,
		math.Log(1+float64(obs.RecallCount()))*l.RecallWeight,
	)
	return math.Max(l.MinUsageBoost, priorityFactor*recallFactor)
}

// ageDays returns elapsed time since creation in fractional days, never negative.
func ageDays(obs *observation.Observation, now time.Time) float64 {
	age := now.Sub(time.Unix(obs.CreatedAt(), 0))
	if age < 0 {
		return 0
	}
	return age.Hours() / 24
}
