package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/ai"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// MockProvider satisfies models.Provider for testing.
type MockProvider struct {
	Name_          string
	SynthesizeFunc func(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet) models.ProviderResult

	mu    sync.Mutex
	calls int
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Synthesize(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet) models.ProviderResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req, sources)
	}
	return models.Success(SampleArtifact(m.Name_, req))
}

// Calls returns how many times Synthesize was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SampleArtifact returns a small, fully formed artifact attributed to provider.
func SampleArtifact(provider string, req models.ContentRequest) models.ContentArtifact {
	return models.ContentArtifact{
		Headline: "Mock post about " + req.Topic,
		Sections: []models.Section{
			{Body: "Mock introduction for testing."},
			{Bullets: []string{"first point", "second point"}},
		},
		Hashtags:   []string{"#Mock"},
		Provenance: models.Provenance{Provider: provider},
		Type:       req.ContentType,
	}
}

// NewMockProvider returns a MockProvider with a sensible default artifact.
func NewMockProvider() *MockProvider {
	return &MockProvider{Name_: "mock"}
}

// NewFailingProvider returns a MockProvider that always fails with err.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		SynthesizeFunc: func(_ context.Context, _ models.ContentRequest, _ []models.SourceSnippet) models.ProviderResult {
			return models.Failure(err)
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		SynthesizeFunc: func(ctx context.Context, _ models.ContentRequest, _ []models.SourceSnippet) models.ProviderResult {
			<-ctx.Done()
			return models.Failure(ai.ErrProviderTimeout)
		},
	}
}

// NewSlowProvider returns a MockProvider that succeeds after delay unless
// the context is cancelled first.
func NewSlowProvider(name string, delay time.Duration) *MockProvider {
	return &MockProvider{
		Name_: name,
		SynthesizeFunc: func(ctx context.Context, req models.ContentRequest, _ []models.SourceSnippet) models.ProviderResult {
			select {
			case <-time.After(delay):
				return models.Success(SampleArtifact(name, req))
			case <-ctx.Done():
				return models.Failure(ctx.Err())
			}
		},
	}
}

// Compile-time check that MockProvider implements Provider.
var _ models.Provider = (*MockProvider)(nil)
