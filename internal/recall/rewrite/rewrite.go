// Package rewrite attempts to rewrite a recall query for better retrieval
// using an ordered sequence of providers, falling back to the original query
// when every attempt fails. The chain is a fold over attempt functions that
// stops at the first success; it never returns an error to the caller
// because recall must still run with the original query.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/joelhooks/joelclaw-sub003/internal/recall/limits"
)

// Strategy identifies which path produced the rewritten query.
type Strategy string

const (
	// StrategyDisabled means no rewrite was attempted.
	StrategyDisabled Strategy = "disabled"
	// StrategyHaiku means the fast haiku-class provider succeeded.
	StrategyHaiku Strategy = "haiku"
	// StrategyOpenAI means the chat-completions provider succeeded.
	StrategyOpenAI Strategy = "openai"
	// StrategyFallback means every attempt failed and the original query is used.
	StrategyFallback Strategy = "fallback"
)

// Usage is the token accounting reported by a provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Output is a successful provider response.
type Output struct {
	Text     string
	Provider string
	Model    string
	Usage    Usage
}

// Attempter is one rewrite provider. The chain stays independent of whether
// an attempt is a local tool invocation or a direct HTTP call; this is also
// the seam for test doubles.
type Attempter interface {
	Name() string
	Attempt(ctx context.Context, system, user string) (Output, error)
}

// Step pairs a provider with its own bounded timeout.
type Step struct {
	Attempter Attempter
	Timeout   time.Duration
}

// Result records everything about one rewrite pass.
type Result struct {
	Query          string // normalized input
	Prompt         string // user prompt sent to providers
	RewrittenQuery string // query actually used for retrieval
	Rewritten      bool   // output differs (case-insensitively) from the input
	Strategy       Strategy
	Provider       string
	Model          string
	Usage          Usage
	Err            string // aggregated attempt errors on fallback
}

const systemPrompt = "You rewrite search queries for a personal knowledge store. " +
	"Return only the rewritten query: expand abbreviations, add likely synonyms, " +
	"keep it under 25 words. No quotes, no explanation."

// Chain tries each step in order and keeps the first usable output.
type Chain struct {
	l      *limits.Limits
	steps  []Step
	logger *zap.Logger
}

// NewChain creates a rewrite chain. Steps run strictly sequentially: the
// next provider is only attempted after the previous one definitively failed.
func NewChain(l *limits.Limits, logger *zap.Logger, steps ...Step) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{l: l, steps: steps, logger: logger}
}

// Rewrite runs the chain. It always returns a structured Result.
func (c *Chain) Rewrite(ctx context.Context, query string, enabled bool, extra string) Result {
	norm := Normalize(c.l, query)
	res := Result{
		Query:          norm,
		RewrittenQuery: norm,
		Strategy:       StrategyDisabled,
	}

	if !enabled || utf8.RuneCountInString(norm) < c.l.MinRewriteChars {
		return res
	}

	prompt := buildPrompt(norm, extra)
	res.Prompt = prompt

	var attemptErrs []string
	for _, step := range c.steps {
		out, err := c.attempt(ctx, step, prompt)
		if err != nil {
			attemptErrs = append(attemptErrs, truncate(err.Error(), c.l.MaxAttemptErrChars))
			c.logger.Warn("rewrite attempt failed",
				zap.String("provider", step.Attempter.Name()),
				zap.Error(err),
			)
			continue
		}

		res.Strategy = Strategy(step.Attempter.Name())
		res.RewrittenQuery = out.Text
		res.Rewritten = !strings.EqualFold(out.Text, norm)
		res.Provider = out.Provider
		res.Model = out.Model
		res.Usage = out.Usage
		return res
	}

	res.Strategy = StrategyFallback
	res.RewrittenQuery = norm
	res.Err = strings.Join(attemptErrs, "; ")
	return res
}

// attempt runs one provider under its own timeout. The context is cancelled
// on return so a timed-out call does not keep consuming budget.
func (c *Chain) attempt(ctx context.Context, step Step, prompt string) (Output, error) {
	actx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()

	out, err := step.Attempter.Attempt(actx, systemPrompt, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Output{}, fmt.Errorf("%s: timed out after %s", step.Attempter.Name(), step.Timeout)
		}
		return Output{}, fmt.Errorf("%s: %w", step.Attempter.Name(), err)
	}

	out.Text = Sanitize(out.Text)
	if out.Text == "" {
		return Output{}, fmt.Errorf("%s: empty output", step.Attempter.Name())
	}
	return out, nil
}

func buildPrompt(query, extra string) string {
	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(query)
	if extra != "" {
		b.WriteString("\nContext: ")
		b.WriteString(extra)
	}
	return b.String()
}

// Normalize trims the query, collapses internal whitespace, and caps the
// length at the configured maximum.
func Normalize(l *limits.Limits, query string) string {
	collapsed := strings.Join(strings.Fields(query), " ")
	if utf8.RuneCountInString(collapsed) <= l.MaxQueryChars {
		return collapsed
	}
	runes := []rune(collapsed)
	return strings.TrimSpace(string(runes[:l.MaxQueryChars]))
}

// Sanitize strips leading/trailing quote characters and collapses whitespace.
// Applied identically regardless of which provider produced the text.
func Sanitize(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	return strings.Trim(collapsed, "\"'`“”‘’")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
