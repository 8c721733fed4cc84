package ai

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// fakeLLM is an llms.Model that returns a canned reply and records the
// messages it was given.
type fakeLLM struct {
	reply   string
	err     error
	explode bool

	mu       sync.Mutex
	messages []llms.MessageContent
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.explode {
		panic("model exploded")
	}
	f.mu.Lock()
	f.messages = messages
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func (f *fakeLLM) seen() []llms.MessageContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages
}
