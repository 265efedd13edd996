package openai

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/joelhooks/joelclaw-sub003/internal/domain"
	"github.com/joelhooks/joelclaw-sub003/internal/metrics"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/rewrite"
)

// Rewriter is one chat-completion rewrite provider. It implements
// rewrite.Attempter for both the haiku-class and openai-class steps of the
// chain; only the configuration differs.
type Rewriter struct {
	client    *openai.Client
	name      string
	provider  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// RewriterConfig holds one rewrite provider's settings.
type RewriterConfig struct {
	// Name is the chain strategy label ("haiku" or "openai").
	Name      string
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// NewRewriter creates a chat-completion rewrite provider.
func NewRewriter(cfg *RewriterConfig) *Rewriter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Rewriter{
		client:    openai.NewClientWithConfig(clientCfg),
		name:      cfg.Name,
		provider:  cfg.Provider,
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Name returns the chain strategy label.
func (r *Rewriter) Name() string { return r.name }

// Attempt sends one system/user prompt pair and returns the generated text
// with provider identity and token-usage accounting.
func (r *Rewriter) Attempt(ctx context.Context, system, user string) (rewrite.Output, error) {
	if r.client == nil {
		return rewrite.Output{}, domain.ErrCredentialUnavailable
	}

	start := time.Now()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})

	duration := time.Since(start)

	if err != nil {
		metrics.RewriteRequestsTotal.WithLabelValues(r.provider, r.model, "error").Inc()
		return rewrite.Output{}, parseAPIError(err, domain.ErrRewriteProviderError)
	}

	metrics.RewriteRequestsTotal.WithLabelValues(r.provider, r.model, "success").Inc()
	metrics.RewriteRequestDuration.WithLabelValues(r.provider, r.model).Observe(duration.Seconds())

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	model := resp.Model
	if model == "" {
		model = r.model
	}

	return rewrite.Output{
		Text:     text,
		Provider: r.provider,
		Model:    model,
		Usage: rewrite.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
