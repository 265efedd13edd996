// Package category normalizes a free-text category hint into a canonical
// filter tag via a fixed alias table.
package category

import "strings"

// Canonical category tags stored on observation documents.
const (
	Preferences  = "preferences"
	Conventions  = "conventions"
	Operations   = "operations"
	Architecture = "architecture"
	Gotchas      = "gotchas"
	References   = "references"
)

// aliases maps human-friendly spellings to canonical tags. Canonical
// spellings map to themselves so exact input resolves identically.
var aliases = map[string]string{
	"preference":   Preferences,
	"preferences":  Preferences,
	"likes":        Preferences,
	"rule":         Conventions,
	"rules":        Conventions,
	"convention":   Conventions,
	"conventions":  Conventions,
	"style":        Conventions,
	"op":           Operations,
	"ops":          Operations,
	"operations":   Operations,
	"runbook":      Operations,
	"infra":        Operations,
	"arch":         Architecture,
	"architecture": Architecture,
	"design":       Architecture,
	"gotcha":       Gotchas,
	"gotchas":      Gotchas,
	"pitfall":      Gotchas,
	"pitfalls":     Gotchas,
	"bug":          Gotchas,
	"bugs":         Gotchas,
	"link":         References,
	"links":        References,
	"reference":    References,
	"references":   References,
}

// Resolution records how a category hint was resolved. An unrecognized hint
// is a silent fallback to no filter, reported here rather than raised.
type Resolution struct {
	Input   string
	Tag     string // empty means no filter
	Matched bool
}

// Resolve looks the hint up in the alias table. Empty or unknown input
// yields no filter.
func Resolve(input string) Resolution {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return Resolution{Input: input}
	}
	if tag, ok := aliases[trimmed]; ok {
		return Resolution{Input: input, Tag: tag, Matched: true}
	}
	return Resolution{Input: input}
}
