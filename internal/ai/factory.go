package ai

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewProviders constructs the configured providers in priority order.
// Providers without credentials are skipped with a warning so the chain can
// still fall through to the template provider. Called once at startup.
func NewProviders(cfg config.AIConfig, logger *slog.Logger) ([]*LLMProvider, error) {
	var providers []*LLMProvider
	for _, name := range cfg.Providers {
		p, err := NewProvider(name, cfg)
		if err != nil {
			if errors.Is(err, errMissingCredentials) {
				logger.Warn("skipping provider without credentials", "provider", name)
				continue
			}
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

var errMissingCredentials = errors.New("missing credentials")

// NewProvider constructs one provider by name.
func NewProvider(name string, cfg config.AIConfig) (*LLMProvider, error) {
	opts := []LLMOption{WithTemperature(cfg.Temperature), WithMaxTokens(cfg.MaxTokens)}

	var (
		model     llms.Model
		modelName string
		err       error
	)
	switch name {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, errMissingCredentials
		}
		modelName = cfg.OpenAI.Model
		model, err = openai.New(
			openai.WithToken(cfg.OpenAI.APIKey),
			openai.WithModel(cfg.OpenAI.Model),
		)
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, errMissingCredentials
		}
		modelName = cfg.Anthropic.Model
		model, err = anthropic.New(
			anthropic.WithToken(cfg.Anthropic.APIKey),
			anthropic.WithModel(cfg.Anthropic.Model),
		)
	case "ollama":
		modelName = cfg.Ollama.Model
		model, err = ollama.New(
			ollama.WithModel(cfg.Ollama.Model),
			ollama.WithServerURL(cfg.Ollama.BaseURL),
		)
	case "huggingface":
		if cfg.HuggingFace.APIKey == "" {
			return nil, errMissingCredentials
		}
		modelName = cfg.HuggingFace.Model
		model, err = huggingface.New(
			huggingface.WithToken(cfg.HuggingFace.APIKey),
			huggingface.WithModel(cfg.HuggingFace.Model),
		)
		opts = append(opts, WithSinglePrompt())
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of openai, anthropic, ollama, huggingface", name)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", name, err)
	}

	return NewLLMProvider(name, modelName, model, opts...), nil
}
