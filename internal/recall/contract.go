package recall

import (
	"context"

	"github.com/joelhooks/joelclaw-sub003/internal/domain/hit"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/rewrite"
)

// Retriever issues the hybrid search against the observation index.
type Retriever interface {
	Retrieve(
		ctx context.Context, query string, limit int, multiplier float64, category string,
	) (hit.Batch, error)
}

// Rewriter runs the query rewrite chain. It never fails; it always returns
// a structured result.
type Rewriter interface {
	Rewrite(ctx context.Context, query string, enabled bool, extra string) rewrite.Result
}
