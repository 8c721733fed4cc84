package ai

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/tmc/langchaingo/llms"
)

// LLMProvider implements models.Provider on top of any langchaingo model.
type LLMProvider struct {
	name         string
	llm          llms.Model
	modelName    string
	temperature  float64
	maxTokens    int
	singlePrompt bool
}

// LLMOption customizes an LLMProvider.
type LLMOption func(*LLMProvider)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) LLMOption {
	return func(p *LLMProvider) { p.temperature = t }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) LLMOption {
	return func(p *LLMProvider) { p.maxTokens = n }
}

// WithSinglePrompt folds the system prompt into the user message, for
// inference endpoints that only read the first message.
func WithSinglePrompt() LLMOption {
	return func(p *LLMProvider) { p.singlePrompt = true }
}

// NewLLMProvider wraps model under the given provider name.
func NewLLMProvider(name, modelName string, model llms.Model, opts ...LLMOption) *LLMProvider {
	p := &LLMProvider{
		name:        name,
		llm:         model,
		modelName:   modelName,
		temperature: 0.7,
		maxTokens:   2000,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LLMProvider) Name() string { return p.name }

// Model returns the configured model name.
func (p *LLMProvider) Model() string { return p.modelName }

// LLM exposes the underlying langchaingo model.
func (p *LLMProvider) LLM() llms.Model { return p.llm }

func (p *LLMProvider) Synthesize(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet) models.ProviderResult {
	userPrompt := BuildPrompt(req, sources)

	var messages []llms.MessageContent
	if p.singlePrompt {
		messages = []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, systemPrompt+"\n\n"+userPrompt),
		}
	} else {
		messages = []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
		}
	}

	resp, err := p.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(p.temperature),
		llms.WithMaxTokens(p.maxTokens),
	)
	if err != nil {
		return models.Failure(Classify(fmt.Errorf("%s generate: %w", p.name, err)))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return models.Failure(fmt.Errorf("%w: %s returned no choices", ErrMalformedOutput, p.name))
	}

	artifact, err := ParseArtifact(resp.Choices[0].Content)
	if err != nil {
		return models.Failure(err)
	}
	artifact.Type = req.ContentType
	artifact.Provenance = models.Provenance{Provider: p.name, Sources: sourceRefs(sources)}
	return models.Success(artifact)
}

var _ models.Provider = (*LLMProvider)(nil)
