// Package db defines the storage contract the recall engine needs from the
// observation index. Consumers depend on the narrow sub-interfaces.
package db

import (
	"context"
	"time"
)

// Store is the database facade for the observation index.
type Store interface {
	Pinger
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KNNQuery is a vector similarity search against an FT index.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	Category     string // optional tag pre-filter, "" = none
	K            int
	ReturnFields []string
}

// TextQuery is a BM25 keyword search against an FT index.
type TextQuery struct {
	IndexName    string
	Query        string
	Category     string // optional tag pre-filter, "" = none
	TopK         int
	ReturnFields []string
}

// SearchEntry is one hit as returned by the index.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult is a page of index hits.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
}
