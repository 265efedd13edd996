// Package observation implements the retrieval client against the
// observation index: over-fetch planning, hybrid search, and the documented
// fallback when the category filter field is missing from the index schema.
package observation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/joelhooks/joelclaw-sub003/internal/db"
	"github.com/joelhooks/joelclaw-sub003/internal/domain/hit"
	domobs "github.com/joelhooks/joelclaw-sub003/internal/domain/observation"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/limits"
)

// store is the consumer interface for index search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Embedder vectorizes the query for the KNN leg.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// returnFields are the observation hash fields hydrated per hit.
var returnFields = []string{
	"content", "created_at", "stale", "recall_count", "retrieval_priority",
	"gate", "category", "category_confidence", "taxonomy_version",
	"__vector_score",
}

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// Repo issues hybrid search requests to the observation index.
type Repo struct {
	store     store
	embed     Embedder
	l         *limits.Limits
	keyPrefix string
	indexName string
	logger    *zap.Logger
}

// New creates a retrieval client. keyPrefix and collection follow the index
// layout: documents at <prefix><collection>:<id>, index at <prefix><collection>:idx.
func New(s store, embed Embedder, l *limits.Limits, keyPrefix, collection string, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{
		store:     s,
		embed:     embed,
		l:         l,
		keyPrefix: keyPrefix + collection + ":",
		indexName: keyPrefix + collection + ":idx",
		logger:    logger,
	}
}

// Retrieve runs the hybrid search with the plan's over-fetch size and the
// resolved category filter. If the index rejects the category field as
// missing from its schema, the search is retried once without the filter and
// the batch is marked as a category fallback. Any other retrieval error is
// returned to the caller as a hard failure.
func (r *Repo) Retrieve(
	ctx context.Context, query string, limit int, multiplier float64, category string,
) (hit.Batch, error) {
	if limit > r.l.MaxInject {
		limit = r.l.MaxInject
	}
	pageSize := r.pageSize(limit, multiplier)

	batch, err := r.search(ctx, query, pageSize, category)
	if err != nil && category != "" && errors.Is(err, db.ErrUnknownField) {
		r.logger.Warn("category filter field missing from index schema, retrying unfiltered",
			zap.String("category", category),
			zap.Error(err),
		)
		batch, err = r.search(ctx, query, pageSize, "")
		if err != nil {
			return hit.Batch{}, err
		}
		batch.CategoryFallback = true
		return batch, nil
	}
	if err != nil {
		return hit.Batch{}, err
	}
	return batch, nil
}

// pageSize computes the over-fetch size: ceil(limit × multiplier), floored
// at limit+FetchFloorExtra, capped at MaxFetch.
func (r *Repo) pageSize(limit int, multiplier float64) int {
	size := int(math.Ceil(float64(limit) * multiplier))
	if floor := limit + r.l.FetchFloorExtra; size < floor {
		size = floor
	}
	if size > r.l.MaxFetch {
		size = r.l.MaxFetch
	}
	return size
}

// search runs both legs and fuses them. When the query cannot be embedded
// the retrieval degrades to keyword-only with raw BM25 scores rather than
// failing the request.
func (r *Repo) search(ctx context.Context, query string, pageSize int, category string) (hit.Batch, error) {
	vector, embErr := r.embed.Embed(ctx, query)
	if embErr != nil {
		r.logger.Warn("query embedding failed, degrading to keyword-only retrieval", zap.Error(embErr))
		return r.searchKeyword(ctx, query, pageSize, category)
	}

	knn, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       vector,
		Category:     category,
		K:            pageSize,
		ReturnFields: returnFields,
	})
	if err != nil {
		return hit.Batch{}, fmt.Errorf("search knn: %w", err)
	}

	bm25, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.indexName,
		Query:        query,
		Category:     category,
		TopK:         pageSize,
		ReturnFields: returnFields,
	})
	if err != nil {
		return hit.Batch{}, fmt.Errorf("search bm25: %w", err)
	}

	return hit.Batch{
		Hits:            r.fuse(knn, bm25, pageSize),
		Mode:            hit.ModeHybrid,
		CategoryApplied: category != "",
	}, nil
}

func (r *Repo) searchKeyword(ctx context.Context, query string, pageSize int, category string) (hit.Batch, error) {
	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.indexName,
		Query:        query,
		Category:     category,
		TopK:         pageSize,
		ReturnFields: returnFields,
	})
	if err != nil {
		return hit.Batch{}, fmt.Errorf("search bm25: %w", err)
	}

	hits := make([]hit.Raw, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		score := entry.Score
		hits = append(hits, hit.NewRaw(r.parseObservation(entry), nil, &score))
	}

	return hit.Batch{
		Hits:            hits,
		Mode:            hit.ModeKeyword,
		CategoryApplied: category != "",
	}, nil
}

// fuse merges the two legs via Reciprocal Rank Fusion, normalized onto
// [0, 1]: a document ranked first in both legs scores exactly 1.
func (r *Repo) fuse(knn, bm25 *db.SearchResult, topK int) []hit.Raw {
	type scored struct {
		entry db.SearchEntry
		score float64
		order int
	}

	merged := make(map[string]*scored)
	order := 0

	collect := func(sr *db.SearchResult) {
		if sr == nil {
			return
		}
		for rank, entry := range sr.Entries {
			s := 1.0 / float64(rrfK+rank+1)
			if existing, ok := merged[entry.Key]; ok {
				existing.score += s
				continue
			}
			merged[entry.Key] = &scored{entry: entry, score: s, order: order}
			order++
		}
	}
	collect(knn)
	collect(bm25)

	maxFused := 2.0 / float64(rrfK+1)

	fused := make([]*scored, 0, len(merged))
	for _, s := range merged {
		fused = append(fused, s)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].order < fused[j].order
	})
	if len(fused) > topK {
		fused = fused[:topK]
	}

	hits := make([]hit.Raw, 0, len(fused))
	for _, s := range fused {
		fusion := s.score / maxFused
		hits = append(hits, hit.NewRaw(r.parseObservation(s.entry), &fusion, nil))
	}
	return hits
}

// parseObservation hydrates an observation from flat hash fields.
func (r *Repo) parseObservation(entry db.SearchEntry) domobs.Observation {
	f := entry.Fields
	return domobs.Reconstruct(
		strings.TrimPrefix(entry.Key, r.keyPrefix),
		f["content"],
		parseInt64(f["created_at"]),
		parseBool(f["stale"]),
		int(parseInt64(f["recall_count"])),
		parseFloat(f["retrieval_priority"]),
		domobs.ParseGateVerdict(f["gate"]),
		f["category"],
		parseFloat(f["category_confidence"]),
		int(parseInt64(f["taxonomy_version"])),
	)
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
