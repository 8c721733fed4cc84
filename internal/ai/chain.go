package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// Attempt records one provider invocation made by the chain.
type Attempt struct {
	Provider string
	Duration time.Duration
	Err      error
}

// Chain tries providers in priority order and falls back to a template
// provider, so it never returns a net failure.
type Chain struct {
	providers []models.Provider
	fallback  models.Provider
	timeout   time.Duration
	logger    *slog.Logger
}

// ChainOption customizes a Chain.
type ChainOption func(*Chain)

// WithFallback replaces the terminal template provider.
// The replacement must uphold the same never-fail contract.
func WithFallback(p models.Provider) ChainOption {
	return func(c *Chain) { c.fallback = p }
}

// WithLogger sets the logger used for per-provider failures.
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// NewChain creates a Chain over providers with a per-call timeout.
func NewChain(providers []models.Provider, timeout time.Duration, opts ...ChainOption) *Chain {
	c := &Chain{
		providers: providers,
		fallback:  NewTemplateProvider(),
		timeout:   timeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers)+1)
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	names = append(names, c.fallback.Name())
	return "chain(" + strings.Join(names, ",") + ")"
}

// Synthesize implements models.Provider.
func (c *Chain) Synthesize(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet) models.ProviderResult {
	res, _ := c.SynthesizeWithAttempts(ctx, req, sources)
	return res
}

// SynthesizeWithAttempts runs the chain and also returns every attempt made,
// including the final template call when the chain was exhausted.
func (c *Chain) SynthesizeWithAttempts(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet) (models.ProviderResult, []Attempt) {
	attempts := make([]Attempt, 0, len(c.providers)+1)

	for _, p := range c.providers {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		res := c.call(ctx, p, req, sources)
		attempts = append(attempts, Attempt{Provider: p.Name(), Duration: time.Since(start), Err: res.Err})
		if res.Succeeded() {
			return res, attempts
		}
		c.logger.Warn("provider failed, trying next",
			"provider", p.Name(),
			"reason", Reason(res.Err),
			"error", res.Err,
			"topic", req.Topic,
		)
	}

	// The template provider is offline and ignores cancellation.
	start := time.Now()
	res := c.fallback.Synthesize(context.WithoutCancel(ctx), req, sources)
	if !res.Succeeded() || res.Artifact.IsEmpty() {
		c.logger.Error("fallback provider failed; using built-in template", "provider", c.fallback.Name(), "error", res.Err)
		res = templateProvider.Synthesize(context.Background(), req, sources)
	}
	attempts = append(attempts, Attempt{Provider: c.fallback.Name(), Duration: time.Since(start)})
	return res, attempts
}

// call invokes p with the chain timeout. A provider that ignores its context
// is abandoned when the timeout fires.
func (c *Chain) call(ctx context.Context, p models.Provider, req models.ContentRequest, sources []models.SourceSnippet) models.ProviderResult {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan models.ProviderResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("panic in provider", "provider", p.Name(), "error", r)
				done <- models.Failure(fmt.Errorf("%w: panic: %v", ErrProviderUnavailable, r))
			}
		}()
		done <- p.Synthesize(callCtx, req, sources)
	}()

	var res models.ProviderResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		return models.Failure(fmt.Errorf("%w: %s after %s", ErrProviderTimeout, p.Name(), c.timeout))
	}

	if !res.Succeeded() {
		if callCtx.Err() != nil {
			return models.Failure(fmt.Errorf("%w: %s: %v", ErrProviderTimeout, p.Name(), res.Err))
		}
		return models.Failure(Classify(res.Err))
	}
	if strings.TrimSpace(res.Artifact.Headline) == "" || res.Artifact.IsEmpty() {
		return models.Failure(fmt.Errorf("%w: %s returned an empty artifact", ErrMalformedOutput, p.Name()))
	}
	if res.Artifact.Provenance.Provider == "" {
		res.Artifact.Provenance.Provider = p.Name()
	}
	return res
}
