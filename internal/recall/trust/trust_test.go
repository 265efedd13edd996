package trust

import (
	"strings"
	"testing"
	"time"

	"github.com/joelhooks/joelclaw-sub003/internal/domain/hit"
	"github.com/joelhooks/joelclaw-sub003/internal/domain/observation"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/limits"
)

type hitSpec struct {
	id          string
	text        string
	age         time.Duration
	stale       bool
	recallCount int
	gate        observation.GateVerdict
	score       float64
}

func makeHit(now time.Time, s hitSpec) hit.Ranked {
	gate := s.gate
	if gate == "" {
		gate = observation.GateAllow
	}
	obs := observation.Reconstruct(
		s.id, s.text, now.Add(-s.age).Unix(), s.stale,
		s.recallCount, 0, gate, "", 0, 0,
	)
	score := s.score
	raw := hit.NewRaw(obs, &score, nil)
	return hit.NewRanked(raw, score, 1, score)
}

func reasonsFor(out Outcome, id string) []string {
	for _, d := range out.Dropped {
		if d.ID == id {
			return d.Reasons
		}
	}
	return nil
}

func hasReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func TestApplyKeepsCleanHits(t *testing.T) {
	l := limits.Default()
	now := time.Now()

	out := Apply(l, []hit.Ranked{
		makeHit(now, hitSpec{id: "a", text: "long enough observation text", score: 0.8}),
	}, Options{}, now)

	if len(out.Kept) != 1 || len(out.Dropped) != 0 {
		t.Fatalf("kept=%d dropped=%d, want 1/0", len(out.Kept), len(out.Dropped))
	}
	for _, stage := range out.Stages {
		if stage == StageTrustPass {
			t.Error("trust-pass stage must not be reported when nothing was dropped")
		}
	}
}

func TestApplyLengthBoundary(t *testing.T) {
	l := limits.Default()
	now := time.Now()

	short := makeHit(now, hitSpec{id: "short", text: strings.Repeat("x", 11), score: 0.8})
	exact := makeHit(now, hitSpec{id: "exact", text: strings.Repeat("x", 12), score: 0.8})

	out := Apply(l, []hit.Ranked{short, exact}, Options{}, now)
	if len(out.Kept) != 1 {
		t.Fatalf("kept = %+v, want only the 12-char hit", out.Kept)
	}
	if obs := out.Kept[0].Observation(); obs.ID() != "exact" {
		t.Fatalf("kept = %+v, want only the 12-char hit", out.Kept)
	}
	if !hasReason(reasonsFor(out, "short"), ReasonTooShort) {
		t.Errorf("dropped reasons = %v, want too_short", reasonsFor(out, "short"))
	}
}

func TestApplyStaleRules(t *testing.T) {
	l := limits.Default()
	now := time.Now()

	tagged := makeHit(now, hitSpec{id: "tagged", text: "long enough observation text", stale: true, score: 0.8})
	oldNeverRecalled := makeHit(now, hitSpec{id: "old", text: "long enough observation text", age: 91 * 24 * time.Hour, score: 0.8})
	oldButUsed := makeHit(now, hitSpec{id: "used", text: "long enough observation text", age: 91 * 24 * time.Hour, recallCount: 3, score: 0.8})

	out := Apply(l, []hit.Ranked{tagged, oldNeverRecalled, oldButUsed}, Options{}, now)

	if !hasReason(reasonsFor(out, "tagged"), ReasonStaleTagged) {
		t.Errorf("tagged reasons = %v", reasonsFor(out, "tagged"))
	}
	if !hasReason(reasonsFor(out, "old"), ReasonStaleAge) {
		t.Errorf("old reasons = %v", reasonsFor(out, "old"))
	}
	if reasonsFor(out, "used") != nil {
		t.Errorf("recalled-before hit must survive the age rule, got %v", reasonsFor(out, "used"))
	}
}

func TestApplyScoreRules(t *testing.T) {
	l := limits.Default()
	now := time.Now()

	zero := makeHit(now, hitSpec{id: "zero", text: "long enough observation text", score: 0})
	below := makeHit(now, hitSpec{id: "below", text: "long enough observation text", score: 0.2})
	above := makeHit(now, hitSpec{id: "above", text: "long enough observation text", score: 0.6})

	out := Apply(l, []hit.Ranked{zero, below, above}, Options{MinScore: 0.5}, now)

	if !hasReason(reasonsFor(out, "zero"), ReasonInvalidScore) {
		t.Errorf("zero reasons = %v", reasonsFor(out, "zero"))
	}
	if !hasReason(reasonsFor(out, "below"), ReasonBelowMinScore) {
		t.Errorf("below reasons = %v", reasonsFor(out, "below"))
	}
	if len(out.Kept) != 1 {
		t.Fatalf("kept = %d, want only the above-threshold hit", len(out.Kept))
	}
	if obs := out.Kept[0].Observation(); obs.ID() != "above" {
		t.Fatalf("kept = %d, want only the above-threshold hit", len(out.Kept))
	}
}

func TestApplyGateOptIns(t *testing.T) {
	l := limits.Default()
	now := time.Now()
	hits := func() []hit.Ranked {
		return []hit.Ranked{
			makeHit(now, hitSpec{id: "held", text: "long enough observation text", gate: observation.GateHold, score: 0.8}),
			makeHit(now, hitSpec{id: "junk", text: "long enough observation text", gate: observation.GateDiscard, score: 0.8}),
		}
	}

	out := Apply(l, hits(), Options{}, now)
	if !hasReason(reasonsFor(out, "held"), ReasonHeldByGate) {
		t.Errorf("held reasons = %v", reasonsFor(out, "held"))
	}
	if !hasReason(reasonsFor(out, "junk"), ReasonDiscardedGate) {
		t.Errorf("junk reasons = %v", reasonsFor(out, "junk"))
	}

	out = Apply(l, hits(), Options{IncludeHeld: true, IncludeDiscarded: true}, now)
	if len(out.Kept) != 2 {
		t.Errorf("kept = %d with both opt-ins, want 2", len(out.Kept))
	}
}

func TestApplyRecordsAllReasons(t *testing.T) {
	l := limits.Default()
	now := time.Now()

	bad := makeHit(now, hitSpec{
		id: "bad", text: "tiny", stale: true,
		age: 100 * 24 * time.Hour, gate: observation.GateDiscard, score: 0,
	})

	out := Apply(l, []hit.Ranked{bad}, Options{MinScore: 0.5}, now)
	reasons := reasonsFor(out, "bad")
	for _, want := range []string{
		ReasonTooShort, ReasonStaleTagged, ReasonStaleAge,
		ReasonInvalidScore, ReasonBelowMinScore, ReasonDiscardedGate,
	} {
		if !hasReason(reasons, want) {
			t.Errorf("reasons = %v, missing %q", reasons, want)
		}
	}
}

func TestApplyNonEmptyGuarantee(t *testing.T) {
	l := limits.Default()
	now := time.Now()

	best := makeHit(now, hitSpec{id: "best", text: "tiny", score: 0.9})
	worse := makeHit(now, hitSpec{id: "worse", text: "tiny", score: 0.4})

	out := Apply(l, []hit.Ranked{best, worse}, Options{}, now)
	if len(out.Kept) != 1 {
		t.Fatalf("kept = %+v, want the single highest-ranked hit", out.Kept)
	}
	if obs := out.Kept[0].Observation(); obs.ID() != "best" {
		t.Fatalf("kept = %+v, want the single highest-ranked hit", out.Kept)
	}

	found := false
	for _, stage := range out.Stages {
		if stage == StageTrustFallback {
			found = true
		}
	}
	if !found {
		t.Errorf("stages = %v, want %q reported", out.Stages, StageTrustFallback)
	}
}

func TestApplyEmptyInputStaysEmpty(t *testing.T) {
	l := limits.Default()
	out := Apply(l, nil, Options{}, time.Now())
	if len(out.Kept) != 0 {
		t.Errorf("kept = %d, want 0 for empty candidates", len(out.Kept))
	}
	for _, stage := range out.Stages {
		if stage == StageTrustFallback {
			t.Error("fallback stage must not fire without candidates")
		}
	}
}

func TestApplyExcerptTruncation(t *testing.T) {
	l := limits.Default()
	now := time.Now()

	long := makeHit(now, hitSpec{id: "long", text: strings.Repeat("a", 200), stale: true, score: 0.8})
	keeper := makeHit(now, hitSpec{id: "ok", text: "long enough observation text", score: 0.8})

	out := Apply(l, []hit.Ranked{long, keeper}, Options{}, now)
	excerpt := out.Dropped[0].Excerpt
	if len([]rune(excerpt)) != l.ExcerptChars+1 { // 80 runes plus the ellipsis
		t.Errorf("excerpt length = %d, want %d", len([]rune(excerpt)), l.ExcerptChars+1)
	}
	if !strings.HasSuffix(excerpt, "…") {
		t.Errorf("excerpt = %q, want ellipsis suffix", excerpt)
	}
}
