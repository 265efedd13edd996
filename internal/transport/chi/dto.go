package chi

import (
	"github.com/joelhooks/joelclaw-sub003/internal/domain/hit"
	"github.com/joelhooks/joelclaw-sub003/internal/recall"
)

// recallRequest is the POST /v1/recall body.
type recallRequest struct {
	Query            string  `json:"query"`
	Category         string  `json:"category,omitempty"`
	Profile          string  `json:"profile,omitempty"`
	Context          string  `json:"context,omitempty"`
	Limit            int     `json:"limit,omitempty"`
	MinScore         float64 `json:"minScore,omitempty"`
	IncludeHeld      bool    `json:"includeHeld,omitempty"`
	IncludeDiscarded bool    `json:"includeDiscarded,omitempty"`
	Rewrite          *bool   `json:"rewrite,omitempty"` // explicit false disables the rewrite
}

// recallResponse is the shaped recall result.
type recallResponse struct {
	Query          string        `json:"query"`
	RewrittenQuery string        `json:"rewrittenQuery"`
	Rewrite        rewriteDTO    `json:"rewrite"`
	Plan           planDTO       `json:"plan"`
	Category       categoryDTO   `json:"category"`
	RetrievalMode  string        `json:"retrievalMode"`
	FiltersApplied []string      `json:"filtersApplied"`
	DroppedCount   int           `json:"droppedCount"`
	DroppedSample  []droppedDTO  `json:"droppedSample,omitempty"`
	Hits           []recallHitDTO `json:"hits"`
}

type rewriteDTO struct {
	Query          string   `json:"query"`
	Prompt         string   `json:"prompt,omitempty"`
	RewrittenQuery string   `json:"rewrittenQuery"`
	Rewritten      bool     `json:"rewritten"`
	Strategy       string   `json:"strategy"`
	Provider       string   `json:"provider,omitempty"`
	Model          string   `json:"model,omitempty"`
	Usage          usageDTO `json:"usage"`
	Error          string   `json:"error,omitempty"`
}

type usageDTO struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type planDTO struct {
	Requested       string  `json:"requested"`
	Applied         string  `json:"applied"`
	Reason          string  `json:"reason"`
	RewriteEnabled  bool    `json:"rewriteEnabled"`
	FetchMultiplier float64 `json:"fetchMultiplier"`
	MaxInject       int     `json:"maxInject"`
}

type categoryDTO struct {
	Input    string `json:"input,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Matched  bool   `json:"matched"`
	Fallback bool   `json:"fallback"` // the index dropped the filter mid-request
}

type droppedDTO struct {
	ID      string   `json:"id"`
	Excerpt string   `json:"excerpt"`
	Reasons []string `json:"reasons"`
}

type recallHitDTO struct {
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

// errorResponse is the stable error shape for failed requests.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

func toResponse(res recall.Result) recallResponse {
	out := recallResponse{
		Query:          res.Query,
		RewrittenQuery: res.RewrittenQuery,
		Rewrite: rewriteDTO{
			Query:          res.Rewrite.Query,
			Prompt:         res.Rewrite.Prompt,
			RewrittenQuery: res.Rewrite.RewrittenQuery,
			Rewritten:      res.Rewrite.Rewritten,
			Strategy:       string(res.Rewrite.Strategy),
			Provider:       res.Rewrite.Provider,
			Model:          res.Rewrite.Model,
			Usage: usageDTO{
				PromptTokens:     res.Rewrite.Usage.PromptTokens,
				CompletionTokens: res.Rewrite.Usage.CompletionTokens,
				TotalTokens:      res.Rewrite.Usage.TotalTokens,
			},
			Error: res.Rewrite.Err,
		},
		Plan: planDTO{
			Requested:       string(res.Plan.Requested),
			Applied:         string(res.Plan.Applied),
			Reason:          res.Plan.Reason,
			RewriteEnabled:  res.Plan.RewriteEnabled,
			FetchMultiplier: res.Plan.FetchMultiplier,
			MaxInject:       res.Plan.MaxInject,
		},
		Category: categoryDTO{
			Input:    res.Category.Input,
			Tag:      res.Category.Tag,
			Matched:  res.Category.Matched,
			Fallback: res.CategoryFallback,
		},
		RetrievalMode:  res.RetrievalMode,
		FiltersApplied: res.FiltersApplied,
		DroppedCount:   res.DroppedCount,
		Hits:           make([]recallHitDTO, 0, len(res.Hits)),
	}

	for _, d := range res.DroppedSample {
		out.DroppedSample = append(out.DroppedSample, droppedDTO(d))
	}

	for _, h := range res.Hits {
		out.Hits = append(out.Hits, toHitDTO(h))
	}

	return out
}

func toHitDTO(h hit.Ranked) recallHitDTO {
	obs := h.Observation()
	return recallHitDTO{
		ID:                 obs.ID(),
		Text:               obs.Text(),
		Score:              h.DecayedScore(),
		RawScore:           h.NormScore(),
		UsageBoost:         h.UsageBoost(),
		CreatedAt:          obs.CreatedAt(),
		Stale:              obs.Stale(),
		RecallCount:        obs.RecallCount(),
		RetrievalPriority:  obs.RetrievalPriority(),
		Gate:               string(obs.Gate()),
		Category:           obs.Category(),
		CategoryConfidence: obs.CategoryConfidence(),
		TaxonomyVersion:    obs.TaxonomyVersion(),
	}
}
