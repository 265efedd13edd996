// Package limits holds the numeric constants of the recall pipeline as one
// immutable struct, constructed once at process start and passed by reference
// into each stage.
package limits

// Limits are the pipeline constants. Fields are exported for read access;
// a Limits value is never mutated after construction.
type Limits struct {
	// MaxInject is the hard ceiling on results returned per recall.
	MaxInject int
	// MaxFetch caps the over-fetch page size sent to the index.
	MaxFetch int
	// FetchFloorExtra is added to the requested limit to floor the page size.
	FetchFloorExtra int

	// DecayPerDay is the exponential recency decay constant (~90-day scale).
	DecayPerDay float64
	// TextScoreScale divides raw text-match scores onto the 0-1 scale.
	// Empirical ceiling observed for BM25 scores on the observation index.
	TextScoreScale float64
	// PriorityWeight scales the retrieval-priority signal in the usage boost.
	PriorityWeight float64
	// RecallWeight scales the log recall-count term in the usage boost.
	RecallWeight float64
	// MaxRecallBonus caps the recall-count contribution to the usage boost.
	MaxRecallBonus float64
	// MinUsageBoost floors the usage boost multiplier.
	MinUsageBoost float64

	// MinObservationChars is the minimum observation length the trust pass accepts.
	MinObservationChars int
	// StaleAfterDays is the age past which never-recalled observations are stale.
	StaleAfterDays float64
	// ExcerptChars bounds the observation excerpt in dropped-hit diagnostics.
	ExcerptChars int
	// DroppedSample bounds the dropped-hit sample in the response.
	DroppedSample int

	// MaxQueryChars caps the normalized query length.
	MaxQueryChars int
	// MinRewriteChars is the shortest query worth rewriting.
	MinRewriteChars int
	// LongQueryChars is the auto-profile length threshold for deep retrieval.
	LongQueryChars int
	// MaxAttemptErrChars truncates each rewrite attempt error message.
	MaxAttemptErrChars int
}

// Default returns the production limits.
func Default() *Limits {
	return &Limits{
		MaxInject:       10,
		MaxFetch:        60,
		FetchFloorExtra: 4,

		DecayPerDay:    0.01,
		TextScoreScale: 12.0,
		PriorityWeight: 0.15,
		RecallWeight:   0.06,
		MaxRecallBonus: 0.3,
		MinUsageBoost:  0.35,

		MinObservationChars: 12,
		StaleAfterDays:      90,
		ExcerptChars:        80,
		DroppedSample:       10,

		MaxQueryChars:      300,
		MinRewriteChars:    4,
		LongQueryChars:     90,
		MaxAttemptErrChars: 220,
	}
}
