// Package trust removes hits that fail minimum-quality, freshness, or
// write-time-gate criteria, reporting a structured reason for every drop.
// It guarantees a non-empty result when candidates existed.
package trust

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/joelhooks/joelclaw-sub003/internal/domain/hit"
	"github.com/joelhooks/joelclaw-sub003/internal/domain/observation"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/limits"
)

// Rejection reason codes. A hit may carry more than one.
const (
	ReasonTooShort      = "too_short"
	ReasonStaleTagged   = "stale_tagged"
	ReasonStaleAge      = "stale_age"
	ReasonInvalidScore  = "invalid_score"
	ReasonBelowMinScore = "below_min_score"
	ReasonHeldByGate    = "held_by_write_gate"
	ReasonDiscardedGate = "discarded_by_write_gate"
)

// Filter-stage labels reported to the caller.
const (
	StageScoring       = "score-normalization"
	StageUsageBoost    = "usage-boost"
	StageWriteGate     = "write-gate"
	StageInjectCap     = "inject-cap"
	StageTrustPass     = "trust-pass"
	StageTrustFallback = "trust-pass-fallback"
)

// Options are the caller-controlled knobs of the trust pass.
type Options struct {
	MinScore         float64
	IncludeHeld      bool
	IncludeDiscarded bool
}

// Outcome is the result of one trust pass.
type Outcome struct {
	Kept    []hit.Ranked
	Dropped []hit.Dropped
	Stages  []string
}

// Apply filters ranked hits. When every hit is rejected but the input was
// non-empty, the single highest-ranked hit is kept anyway and the outcome is
// tagged with the fallback stage label: recall never returns zero results
// when candidates existed.
func Apply(l *limits.Limits, hits []hit.Ranked, opts Options, now time.Time) Outcome {
	out := Outcome{
		Stages: []string{StageScoring, StageUsageBoost, StageWriteGate, StageInjectCap},
	}

	for _, h := range hits {
		reasons := reject(l, &h, opts, now)
		if len(reasons) == 0 {
			out.Kept = append(out.Kept, h)
			continue
		}
		obs := h.Observation()
		out.Dropped = append(out.Dropped, hit.Dropped{
			ID:      obs.ID(),
			Excerpt: excerpt(obs.Text(), l.ExcerptChars),
			Reasons: reasons,
		})
	}

	if len(out.Dropped) > 0 {
		out.Stages = append(out.Stages, StageTrustPass)
	}

	if len(out.Kept) == 0 && len(hits) > 0 {
		out.Kept = []hit.Ranked{hits[0]}
		out.Stages = append(out.Stages, StageTrustFallback)
	}

	return out
}

// reject checks every criterion independently and records all that apply.
func reject(l *limits.Limits, h *hit.Ranked, opts Options, now time.Time) []string {
	var reasons []string
	obs := h.Observation()

	if utf8.RuneCountInString(obs.Text()) < l.MinObservationChars {
		reasons = append(reasons, ReasonTooShort)
	}
	if obs.Stale() {
		reasons = append(reasons, ReasonStaleTagged)
	}
	if ageDays(obs.CreatedAt(), now) > l.StaleAfterDays && obs.RecallCount() == 0 {
		reasons = append(reasons, ReasonStaleAge)
	}

	score := h.DecayedScore()
	if math.IsNaN(score) || math.IsInf(score, 0) || score <= 0 {
		reasons = append(reasons, ReasonInvalidScore)
	}
	if score < opts.MinScore {
		reasons = append(reasons, ReasonBelowMinScore)
	}

	switch obs.Gate() {
	case observation.GateHold:
		if !opts.IncludeHeld {
			reasons = append(reasons, ReasonHeldByGate)
		}
	case observation.GateDiscard:
		if !opts.IncludeDiscarded {
			reasons = append(reasons, ReasonDiscardedGate)
		}
	}

	return reasons
}

func ageDays(createdAt int64, now time.Time) float64 {
	age := now.Sub(time.Unix(createdAt, 0))
	if age < 0 {
		return 0
	}
	return age.Hours() / 24
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
