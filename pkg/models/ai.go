// Package models contains shared data models used across the PostPilot codebase.
package models

import (
	"context"
	"errors"
)

// Provider is the core interface that all content-synthesis backends implement.
// Never call specific providers directly — always go through the chain.
type Provider interface {
	// Synthesize turns a request and its research snippets into an artifact.
	Synthesize(ctx context.Context, req ContentRequest, sources []SourceSnippet) ProviderResult
	// Name returns the provider identifier (e.g., "openai", "template").
	Name() string
}

// ProviderResult is the tagged outcome of a synthesis call.
// Either Artifact is fully formed and Err is nil, or Err is set.
type ProviderResult struct {
	Artifact ContentArtifact
	Err      error
}

// Success wraps a fully formed artifact.
func Success(a ContentArtifact) ProviderResult {
	return ProviderResult{Artifact: a}
}

// Failure wraps the reason a provider could not produce an artifact.
func Failure(err error) ProviderResult {
	if err == nil {
		err = errors.New("provider failed without a reason")
	}
	return ProviderResult{Err: err}
}

// Succeeded reports whether the result carries an artifact.
func (r ProviderResult) Succeeded() bool { return r.Err == nil }
