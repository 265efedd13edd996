package observation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/joelhooks/joelclaw-sub003/internal/db"
	"github.com/joelhooks/joelclaw-sub003/internal/domain/hit"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/limits"
)

// --- Mocks ---

type mockStore struct {
	knnResult  *db.SearchResult
	knnErr     error
	bm25Result *db.SearchResult
	bm25Err    error

	knnCalls  []*db.KNNQuery
	bm25Calls []*db.TextQuery

	// errs by call index let a test fail the first search and pass the retry
	knnErrByCall map[int]error
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	call := len(m.knnCalls)
	m.knnCalls = append(m.knnCalls, q)
	if err, ok := m.knnErrByCall[call]; ok {
		return nil, err
	}
	if m.knnErr != nil {
		return nil, m.knnErr
	}
	return m.knnResult, nil
}

func (m *mockStore) SearchBM25(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	m.bm25Calls = append(m.bm25Calls, q)
	if m.bm25Err != nil {
		return nil, m.bm25Err
	}
	return m.bm25Result, nil
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.vec, m.err
}

func entry(key string, score float64) db.SearchEntry {
	return db.SearchEntry{
		Key:   key,
		Score: score,
		Fields: map[string]string{
			"content":            "observation content for " + key,
			"created_at":         "1735689600",
			"stale":              "0",
			"recall_count":       "2",
			"retrieval_priority": "0.5",
			"gate":               "allow",
			"category":           "conventions",
		},
	}
}

func result(keys ...string) *db.SearchResult {
	sr := &db.SearchResult{Total: len(keys)}
	for i, k := range keys {
		sr.Entries = append(sr.Entries, entry(k, float64(10-i)))
	}
	return sr
}

func newTestRepo(s *mockStore, e *mockEmbedder) *Repo {
	return New(s, e, limits.Default(), "recall:", "observations", nil)
}

// --- Tests ---

func TestPageSize(t *testing.T) {
	r := newTestRepo(&mockStore{}, &mockEmbedder{})

	cases := []struct {
		limit      int
		multiplier float64
		want       int
	}{
		{10, 3.0, 30},
		{10, 5.0, 50},
		{5, 1.8, 9},
		{2, 1.8, 6},   // floored at limit+4
		{10, 1.0, 14}, // floored at limit+4
		{10, 9.0, 60}, // capped at MaxFetch
	}
	for _, tc := range cases {
		if got := r.pageSize(tc.limit, tc.multiplier); got != tc.want {
			t.Errorf("pageSize(%d, %v) = %d, want %d", tc.limit, tc.multiplier, got, tc.want)
		}
	}
}

func TestRetrieveHybrid(t *testing.T) {
	s := &mockStore{
		knnResult:  result("recall:observations:a", "recall:observations:b"),
		bm25Result: result("recall:observations:a", "recall:observations:c"),
	}
	r := newTestRepo(s, &mockEmbedder{vec: []float32{0.1, 0.2}})

	batch, err := r.Retrieve(context.Background(), "redis conventions", 10, 3.0, "conventions")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if batch.Mode != hit.ModeHybrid {
		t.Errorf("mode = %q, want hybrid", batch.Mode)
	}
	if !batch.CategoryApplied || batch.CategoryFallback {
		t.Errorf("category flags = %v/%v, want applied without fallback",
			batch.CategoryApplied, batch.CategoryFallback)
	}
	if len(batch.Hits) != 3 {
		t.Fatalf("hits = %d, want 3 distinct documents", len(batch.Hits))
	}

	// Document "a" ranked first in both legs fuses to exactly 1.0
	top := batch.Hits[0]
	topObs := top.Observation()
	if got := topObs.ID(); got != "a" {
		t.Errorf("top hit = %q, want a (and the key prefix stripped)", got)
	}
	fusion, ok := top.FusionScore()
	if !ok || math.Abs(fusion-1.0) > 1e-9 {
		t.Errorf("fusion = %v/%v, want exactly 1.0", fusion, ok)
	}

	if s.knnCalls[0].Category != "conventions" || s.bm25Calls[0].Category != "conventions" {
		t.Error("category filter must reach both legs")
	}
	if s.knnCalls[0].K != 30 {
		t.Errorf("K = %d, want the over-fetch page size 30", s.knnCalls[0].K)
	}
}

func TestRetrieveParsesObservationFields(t *testing.T) {
	s := &mockStore{
		knnResult:  result("recall:observations:a"),
		bm25Result: &db.SearchResult{},
	}
	r := newTestRepo(s, &mockEmbedder{vec: []float32{0.1}})

	batch, err := r.Retrieve(context.Background(), "q", 10, 3.0, "")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	obs := batch.Hits[0].Observation()
	if obs.CreatedAt() != 1735689600 {
		t.Errorf("createdAt = %d", obs.CreatedAt())
	}
	if obs.RecallCount() != 2 || obs.RetrievalPriority() != 0.5 {
		t.Errorf("recallCount=%d priority=%v", obs.RecallCount(), obs.RetrievalPriority())
	}
	if obs.Category() != "conventions" {
		t.Errorf("category = %q", obs.Category())
	}
}

func TestRetrieveCategoryFallbackOnUnknownField(t *testing.T) {
	s := &mockStore{
		knnResult:    result("recall:observations:a"),
		bm25Result:   result("recall:observations:a"),
		knnErrByCall: map[int]error{0: fmt.Errorf("%w: category", db.ErrUnknownField)},
	}
	r := newTestRepo(s, &mockEmbedder{vec: []float32{0.1}})

	batch, err := r.Retrieve(context.Background(), "q", 10, 3.0, "conventions")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !batch.CategoryFallback {
		t.Error("CategoryFallback must be set after the schema retry")
	}
	if len(s.knnCalls) != 2 {
		t.Fatalf("knn calls = %d, want the filtered attempt plus the retry", len(s.knnCalls))
	}
	if s.knnCalls[1].Category != "" {
		t.Errorf("retry category = %q, want unfiltered", s.knnCalls[1].Category)
	}
}

func TestRetrieveUnknownFieldWithoutCategoryIsAnError(t *testing.T) {
	s := &mockStore{
		knnErr:     fmt.Errorf("%w: whatever", db.ErrUnknownField),
		bm25Result: &db.SearchResult{},
	}
	r := newTestRepo(s, &mockEmbedder{vec: []float32{0.1}})

	if _, err := r.Retrieve(context.Background(), "q", 10, 3.0, ""); err == nil {
		t.Fatal("want error when no category filter was applied")
	}
	if len(s.knnCalls) != 1 {
		t.Errorf("knn calls = %d, want no retry without a filter", len(s.knnCalls))
	}
}

func TestRetrieveHardFailure(t *testing.T) {
	s := &mockStore{knnErr: fmt.Errorf("%w: connection refused", db.ErrUnreachable)}
	r := newTestRepo(s, &mockEmbedder{vec: []float32{0.1}})

	_, err := r.Retrieve(context.Background(), "q", 10, 3.0, "conventions")
	if !errors.Is(err, db.ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable preserved", err)
	}
}

func TestRetrieveDegradesToKeywordOnEmbedFailure(t *testing.T) {
	s := &mockStore{bm25Result: result("recall:observations:a", "recall:observations:b")}
	r := newTestRepo(s, &mockEmbedder{err: errors.New("embedding provider down")})

	batch, err := r.Retrieve(context.Background(), "q", 10, 3.0, "")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if batch.Mode != hit.ModeKeyword {
		t.Errorf("mode = %q, want keyword", batch.Mode)
	}
	if len(s.knnCalls) != 0 {
		t.Error("KNN leg must not run without a vector")
	}

	// Keyword hits carry the raw BM25 score, not a fusion score
	if _, ok := batch.Hits[0].FusionScore(); ok {
		t.Error("keyword hit must not carry a fusion score")
	}
	if text, ok := batch.Hits[0].TextScore(); !ok || text != 10 {
		t.Errorf("text score = %v/%v, want the raw BM25 value", text, ok)
	}
}

func TestRetrieveCapsLimitAtCeiling(t *testing.T) {
	s := &mockStore{
		knnResult:  &db.SearchResult{},
		bm25Result: &db.SearchResult{},
	}
	r := newTestRepo(s, &mockEmbedder{vec: []float32{0.1}})

	if _, err := r.Retrieve(context.Background(), "q", 50, 3.0, ""); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	// limit capped to 10, so page size is 30
	if got := s.knnCalls[0].K; got != 30 {
		t.Errorf("K = %d, want 30 after the limit ceiling", got)
	}
}
