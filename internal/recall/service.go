// Package recall orchestrates the retrieval-and-ranking pipeline: budget
// planning, category resolution, query rewrite, hybrid retrieval, scoring
// with recency decay, and the trust pass.
package recall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joelhooks/joelclaw-sub003/internal/db"
	"github.com/joelhooks/joelclaw-sub003/internal/domain"
	"github.com/joelhooks/joelclaw-sub003/internal/domain/hit"
	"github.com/joelhooks/joelclaw-sub003/internal/metrics"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/budget"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/category"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/limits"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/rewrite"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/scoring"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/trust"
	"github.com/joelhooks/joelclaw-sub003/internal/telemetry"
)

// Request is one recall request. All fields except Query are optional.
type Request struct {
	Query            string
	Category         string
	Profile          string
	Context          string
	Limit            int
	MinScore         float64
	IncludeHeld      bool
	IncludeDiscarded bool
	DisableRewrite   bool
}

// Result is the shaped recall response.
type Result struct {
	Query            string // normalized input
	RewrittenQuery   string
	Rewrite          rewrite.Result
	Plan             budget.Plan
	Category         category.Resolution
	CategoryFallback bool
	RetrievalMode    string
	FiltersApplied   []string
	DroppedCount     int
	DroppedSample    []hit.Dropped
	Hits             []hit.Ranked
}

// Service sequences the pipeline per request. Everything it builds is local
// to the request's call stack; no state is held across requests.
type Service struct {
	retriever        Retriever
	rewriter         Rewriter
	l                *limits.Limits
	emitter          telemetry.Emitter
	retrievalTimeout time.Duration
	logger           *zap.Logger
	now              func() time.Time
}

// New creates the recall orchestrator.
func New(
	retriever Retriever, rewriter Rewriter, l *limits.Limits,
	emitter telemetry.Emitter, retrievalTimeout time.Duration, logger *zap.Logger,
) *Service {
	if emitter == nil {
		emitter = telemetry.NopEmitter{}
	}
	if retrievalTimeout <= 0 {
		retrievalTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever:        retriever,
		rewriter:         rewriter,
		l:                l,
		emitter:          emitter,
		retrievalTimeout: retrievalTimeout,
		logger:           logger,
		now:              time.Now,
	}
}

// WithClock overrides the clock (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Recall runs one request through the pipeline.
func (s *Service) Recall(ctx context.Context, req Request) (Result, error) {
	norm := rewrite.Normalize(s.l, req.Query)
	if norm == "" {
		return Result{}, domain.ErrEmptyQuery
	}

	start := s.now()
	s.emitter.Emit(ctx, telemetry.Event{Name: "recall_started", Query: norm})

	plan := budget.Resolve(s.l, budget.ParseProfile(req.Profile), norm)
	cat := category.Resolve(req.Category)

	enabled := plan.RewriteEnabled && !req.DisableRewrite
	rw := s.rewriter.Rewrite(ctx, req.Query, enabled, req.Context)
	metrics.RewriteStrategyTotal.WithLabelValues(string(rw.Strategy)).Inc()

	limit := plan.MaxInject
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}

	rctx, cancel := context.WithTimeout(ctx, s.retrievalTimeout)
	batch, err := s.retriever.Retrieve(rctx, rw.RewrittenQuery, limit, plan.FetchMultiplier, cat.Tag)
	cancel()
	if err != nil {
		metrics.RecallRequestsTotal.WithLabelValues("error").Inc()
		s.emitter.Emit(ctx, telemetry.Event{
			Name: "recall_finished", Query: norm,
			Duration: s.now().Sub(start), Err: err.Error(),
		})
		return Result{}, s.classifyRetrievalErr(err)
	}

	if batch.CategoryFallback {
		metrics.RetrievalFallbacksTotal.WithLabelValues("category_filter").Inc()
	}
	if batch.Mode == hit.ModeKeyword {
		metrics.RetrievalFallbacksTotal.WithLabelValues("keyword_only").Inc()
	}

	now := s.now()
	ranked := scoring.Rank(s.l, batch.Hits, now)
	out := trust.Apply(s.l, ranked, trust.Options{
		MinScore:         req.MinScore,
		IncludeHeld:      req.IncludeHeld,
		IncludeDiscarded: req.IncludeDiscarded,
	}, now)

	for _, d := range out.Dropped {
		for _, reason := range d.Reasons {
			metrics.DroppedHitsTotal.WithLabelValues(reason).Inc()
		}
	}

	kept := out.Kept
	if len(kept) > limit {
		kept = kept[:limit]
	}

	sample := out.Dropped
	if len(sample) > s.l.DroppedSample {
		sample = sample[:s.l.DroppedSample]
	}

	res := Result{
		Query:            norm,
		RewrittenQuery:   rw.RewrittenQuery,
		Rewrite:          rw,
		Plan:             plan,
		Category:         cat,
		CategoryFallback: batch.CategoryFallback,
		RetrievalMode:    batch.Mode,
		FiltersApplied:   out.Stages,
		DroppedCount:     len(out.Dropped),
		DroppedSample:    sample,
		Hits:             kept,
	}

	metrics.RecallRequestsTotal.WithLabelValues("ok").Inc()
	metrics.RecallDuration.Observe(s.now().Sub(start).Seconds())

	s.emitter.Emit(ctx, telemetry.Event{
		Name:     "recall_finished",
		Query:    norm,
		Strategy: string(rw.Strategy),
		Hits:     len(kept),
		Dropped:  len(out.Dropped),
		Duration: s.now().Sub(start),
	})

	s.logger.Debug("recall complete",
		zap.String("profile", string(plan.Applied)),
		zap.String("strategy", string(rw.Strategy)),
		zap.Int("candidates", len(batch.Hits)),
		zap.Int("kept", len(kept)),
		zap.Int("dropped", len(out.Dropped)),
	)

	return res, nil
}

// classifyRetrievalErr maps retrieval failures onto the domain taxonomy.
// Timeouts and network-level failures both surface as index-unreachable.
func (s *Service) classifyRetrievalErr(err error) error {
	if errors.Is(err, db.ErrUnreachable) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", domain.ErrIndexUnreachable, err.Error())
	}
	return err
}
