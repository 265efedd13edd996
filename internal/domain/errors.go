package domain

import "errors"

var (
	// ErrIndexUnreachable signals that the observation index cannot be reached.
	ErrIndexUnreachable = errors.New("observation index unreachable")
	// ErrCredentialUnavailable signals a missing or unleasable credential.
	ErrCredentialUnavailable = errors.New("credential unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRewriteProviderError signals a rewrite provider failure.
	ErrRewriteProviderError = errors.New("rewrite provider error")
	// ErrEmptyQuery signals a recall request without a usable query.
	ErrEmptyQuery = errors.New("query is required")
)
