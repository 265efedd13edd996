package recall

// Request is the body of POST /v1/recall.
type Request struct {
	Query            string  `json:"query"`
	Category         string  `json:"category,omitempty"`
	Profile          string  `json:"profile,omitempty"`
	Context          string  `json:"context,omitempty"`
	Limit            int     `json:"limit,omitempty"`
	MinScore         float64 `json:"minScore,omitempty"`
	IncludeHeld      bool    `json:"includeHeld,omitempty"`
	IncludeDiscarded bool    `json:"includeDiscarded,omitempty"`
	Rewrite          *bool   `json:"rewrite,omitempty"`
}

// Response is the structured recall result.
type Response struct {
	Query          string    `json:"query"`
	RewrittenQuery string    `json:"rewrittenQuery"`
	Rewrite        Rewrite   `json:"rewrite"`
	Plan           Plan      `json:"plan"`
	Category       Category  `json:"category"`
	RetrievalMode  string    `json:"retrievalMode"`
	FiltersApplied []string  `json:"filtersApplied"`
	DroppedCount   int       `json:"droppedCount"`
	DroppedSample  []Dropped `json:"droppedSample,omitempty"`
	Hits           []Hit     `json:"hits"`
}

// Rewrite describes the query-rewrite outcome.
type Rewrite struct {
	Query          string `json:"query"`
	Prompt         string `json:"prompt,omitempty"`
	RewrittenQuery string `json:"rewrittenQuery"`
	Rewritten      bool   `json:"rewritten"`
	Strategy       string `json:"strategy"`
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model,omitempty"`
	Usage          Usage  `json:"usage"`
	Error          string `json:"error,omitempty"`
}

// Usage reports rewrite token usage.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Plan is the resolved retrieval budget.
type Plan struct {
	Requested       string  `json:"requested"`
	Applied         string  `json:"applied"`
	Reason          string  `json:"reason"`
	RewriteEnabled  bool    `json:"rewriteEnabled"`
	FetchMultiplier float64 `json:"fetchMultiplier"`
	MaxInject       int     `json:"maxInject"`
}

// Category is the resolved category filter.
type Category struct {
	Input    string `json:"input,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Matched  bool   `json:"matched"`
	Fallback bool   `json:"fallback"`
}

// Dropped is one trust-pass casualty from the diagnostic sample.
type Dropped struct {
	ID      string   `json:"id"`
	Excerpt string   `json:"excerpt"`
	Reasons []string `json:"reasons"`
}

// Hit is one kept observation with its scores.
type Hit struct {
	ID                 string  `json:"id"`
	Text               string  `json:"text"`
	Score              float64 `json:"score"`
	RawScore           float64 `json:"rawScore"`
	UsageBoost         float64 `json:"usageBoost"`
	CreatedAt          int64   `json:"createdAt"`
	Stale              bool    `json:"stale"`
	RecallCount        int     `json:"recallCount"`
	RetrievalPriority  float64 `json:"retrievalPriority"`
	Gate               string  `json:"gate"`
	Category           string  `json:"category,omitempty"`
	CategoryConfidence float64 `json:"categoryConfidence,omitempty"`
	TaxonomyVersion    int     `json:"taxonomyVersion,omitempty"`
}

// APIError is a non-2xx response from recalld.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

func (e *APIError) Error() string {
	if e.Fix != "" {
		return e.Code + ": " + e.Message + " (fix: " + e.Fix + ")"
	}
	return e.Code + ": " + e.Message
}
