package db

import "errors"

// Sentinel errors for index operations.
var (
	// ErrUnknownField signals a query filtering on a field absent from the
	// index schema. The retrieval client recovers from this by retrying
	// without the filter.
	ErrUnknownField = errors.New("db: unknown field in index schema")
	// ErrUnreachable signals a network-level failure talking to the index.
	ErrUnreachable = errors.New("db: index unreachable")
)

// Op constants map to Redis command names for error context.
const (
	OpSearch = "FT.SEARCH"
	OpPing   = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
