// Package budget maps a requested retrieval profile and the query text to a
// concrete execution plan: whether to rewrite, how far to over-fetch, and how
// many results to keep.
package budget

import (
	"strings"

	"github.com/joelhooks/joelclaw-sub003/internal/recall/limits"
)

// Profile is a named retrieval depth/cost tradeoff.
type Profile string

const (
	// Lean skips the rewrite and fetches a thin candidate set.
	Lean Profile = "lean"
	// Balanced rewrites and over-fetches moderately.
	Balanced Profile = "balanced"
	// Deep rewrites and over-fetches aggressively for complex queries.
	Deep Profile = "deep"
	// Auto resolves to balanced or deep based on the query.
	Auto Profile = "auto"
)

// ParseProfile normalizes a requested profile string. Unknown or empty
// input resolves to Auto.
func ParseProfile(s string) Profile {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case Lean:
		return Lean
	case Balanced:
		return Balanced
	case Deep:
		return Deep
	default:
		return Auto
	}
}

// Plan is the resolved retrieval budget for one request.
type Plan struct {
	Requested       Profile
	Applied         Profile
	Reason          string
	RewriteEnabled  bool
	FetchMultiplier float64
	MaxInject       int
}

// Resolve maps the requested profile plus the normalized query text to a Plan.
// Deterministic; no side effects.
func Resolve(l *limits.Limits, requested Profile, query string) Plan {
	applied := requested
	reason := "explicit"

	if requested == Auto {
		applied, reason = classify(l, query)
	}

	plan := Plan{Requested: requested, Applied: applied, Reason: reason}
	switch applied {
	case Lean:
		plan.RewriteEnabled = false
		plan.FetchMultiplier = 1.8
		plan.MaxInject = 5
	case Deep:
		plan.RewriteEnabled = true
		plan.FetchMultiplier = 5.0
		plan.MaxInject = 10
	default:
		plan.Applied = Balanced
		plan.RewriteEnabled = true
		plan.FetchMultiplier = 3.0
		plan.MaxInject = 10
	}

	if plan.MaxInject > l.MaxInject {
		plan.MaxInject = l.MaxInject
	}
	return plan
}

// classify decides between balanced and deep for auto requests. A query is
// complex when it is long, conjunctive, or causal.
func classify(l *limits.Limits, query string) (Profile, string) {
	lower := strings.ToLower(query)
	switch {
	case len(query) > l.LongQueryChars:
		return Deep, "auto: long query"
	case strings.Contains(lower, " and "):
		return Deep, "auto: conjunctive query"
	case strings.Contains(lower, "why"):
		return Deep, "auto: causal query"
	default:
		return Balanced, "auto: default"
	}
}
