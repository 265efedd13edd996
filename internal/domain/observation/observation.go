package observation

import "math"

// GateVerdict is the write-time gate label assigned when an observation was stored.
type GateVerdict string

const (
	// GateAllow marks an observation safe to inject by default.
	GateAllow GateVerdict = "allow"
	// GateHold marks an observation that requires explicit opt-in.
	GateHold GateVerdict = "hold"
	// GateDiscard marks an observation judged noise at write time.
	GateDiscard GateVerdict = "discard"
)

// ParseGateVerdict maps a stored string to a GateVerdict.
// Unknown or empty values default to allow so legacy documents stay recallable.
func ParseGateVerdict(s string) GateVerdict {
	switch GateVerdict(s) {
	case GateHold:
		return GateHold
	case GateDiscard:
		return GateDiscard
	default:
		return GateAllow
	}
}

// Observation is a stored unit of recallable knowledge (immutable value object).
// It is owned by the write path; recall consumes it read-only.
type Observation struct {
	id                 string
	text               string
	createdAt          int64 // seconds since epoch
	stale              bool
	recallCount        int
	retrievalPriority  float64
	gate               GateVerdict
	category           string
	categoryConfidence float64
	taxonomyVersion    int
}

// Reconstruct hydrates an Observation from storage.
// recallCount is floored at zero and retrievalPriority is clamped to [-1, 1].
func Reconstruct(
	id, text string, createdAt int64, stale bool,
	recallCount int, retrievalPriority float64, gate GateVerdict,
	category string, categoryConfidence float64, taxonomyVersion int,
) Observation {
	if recallCount < 0 {
		recallCount = 0
	}
	return Observation{
		id:                 id,
		text:               text,
		createdAt:          createdAt,
		stale:              stale,
		recallCount:        recallCount,
		retrievalPriority:  clamp(retrievalPriority, -1, 1),
		gate:               gate,
		category:           category,
		categoryConfidence: categoryConfidence,
		taxonomyVersion:    taxonomyVersion,
	}
}

// ID returns the observation identifier.
func (o *Observation) ID() string { return o.id }

// Text returns the free-text observation.
func (o *Observation) Text() string { return o.text }

// CreatedAt returns the creation timestamp in seconds since epoch.
func (o *Observation) CreatedAt() int64 { return o.createdAt }

// Stale reports whether the observation was tagged stale.
func (o *Observation) Stale() bool { return o.stale }

// RecallCount returns how many times the observation has been surfaced.
func (o *Observation) RecallCount() int { return o.recallCount }

// RetrievalPriority returns the externally tuned priority signal in [-1, 1].
func (o *Observation) RetrievalPriority() float64 { return o.retrievalPriority }

// Gate returns the write-time gate verdict.
func (o *Observation) Gate() GateVerdict { return o.gate }

// Category returns the category identifier.
func (o *Observation) Category() string { return o.category }

// CategoryConfidence returns the categorization confidence score.
func (o *Observation) CategoryConfidence() float64 { return o.categoryConfidence }

// TaxonomyVersion returns the taxonomy version the category was assigned under.
func (o *Observation) TaxonomyVersion() int { return o.taxonomyVersion }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(hi, math.Max(lo, v))
}
