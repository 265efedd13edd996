// Package hit holds the hit shapes flowing through the recall pipeline:
// raw index hits, ranked hits, and dropped-hit diagnostics.
package hit

import "github.com/joelhooks/joelclaw-sub003/internal/domain/observation"

// Raw is an observation plus the relevance signals the index returned for it.
// Exactly one signal is authoritative: the fusion score takes precedence
// when present; otherwise the raw text-match score applies.
type Raw struct {
	obs       observation.Observation
	fusion    float64
	hasFusion bool
	text      float64
	hasText   bool
}

// NewRaw creates a raw hit. Pass nil for an absent score.
func NewRaw(obs observation.Observation, fusionScore, textScore *float64) Raw {
	r := Raw{obs: obs}
	if fusionScore != nil {
		r.fusion = *fusionScore
		r.hasFusion = true
	}
	if textScore != nil {
		r.text = *textScore
		r.hasText = true
	}
	return r
}

// Observation returns the embedded observation document.
func (r *Raw) Observation() observation.Observation { return r.obs }

// FusionScore returns the hybrid fusion score and whether it is present.
func (r *Raw) FusionScore() (float64, bool) { return r.fusion, r.hasFusion }

// TextScore returns the raw text-match score and whether it is present.
func (r *Raw) TextScore() (float64, bool) { return r.text, r.hasText }

// Ranked is a raw hit annotated with the derived ranking numbers.
// Immutable once computed; sorting never mutates it.
type Ranked struct {
	raw        Raw
	normScore  float64
	usageBoost float64
	decayed    float64
}

// NewRanked creates a ranked hit.
func NewRanked(raw Raw, normScore, usageBoost, decayed float64) Ranked {
	return Ranked{raw: raw, normScore: normScore, usageBoost: usageBoost, decayed: decayed}
}

// Raw returns the underlying raw hit.
func (r *Ranked) Raw() Raw { return r.raw }

// Observation returns the embedded observation document.
func (r *Ranked) Observation() observation.Observation { return r.raw.Observation() }

// NormScore returns the normalized raw score in [0, 1].
func (r *Ranked) NormScore() float64 { return r.normScore }

// UsageBoost returns the usage reinforcement multiplier (>= 0.35).
func (r *Ranked) UsageBoost() float64 { return r.usageBoost }

// DecayedScore returns the final ranking key.
func (r *Ranked) DecayedScore() float64 { return r.decayed }

// Retrieval modes reported by the retrieval client.
const (
	// ModeHybrid means both the vector and keyword legs ran and were fused.
	ModeHybrid = "hybrid"
	// ModeKeyword means retrieval degraded to the keyword leg only.
	ModeKeyword = "keyword"
)

// Batch is the raw hit set one retrieval produced, plus boundary diagnostics.
type Batch struct {
	Hits             []Raw
	Mode             string
	CategoryApplied  bool
	CategoryFallback bool
}

// Dropped is a diagnostic for a hit rejected by the trust pass.
// Produced per request, never persisted.
type Dropped struct {
	ID      string
	Excerpt string
	Reasons []string
}
