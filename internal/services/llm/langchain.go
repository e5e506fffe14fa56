package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChain adapts a langchaingo model to the Completer interface.
type LangChain struct {
	model       llms.Model
	name        string
	temperature float64
}

// NewLangChain wraps an existing langchaingo model.
func NewLangChain(model llms.Model, name string, temperature float64) *LangChain {
	return &LangChain{model: model, name: name, temperature: temperature}
}

// NewOpenAI builds an OpenAI (or OpenAI-compatible) backend.
func NewOpenAI(apiKey, model, baseURL string) (*LangChain, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key required")
	}
	opts := []openai.Option{openai.WithToken(apiKey)}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return NewLangChain(m, model, 0.3), nil
}

// NewOllama builds a local Ollama backend.
func NewOllama(model, serverURL string) (*LangChain, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return NewLangChain(m, model, 0.3), nil
}

// NewAnthropic builds an Anthropic backend.
func NewAnthropic(apiKey, model string) (*LangChain, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key required")
	}
	opts := []anthropic.Option{anthropic.WithToken(apiKey)}
	if model != "" {
		opts = append(opts, anthropic.WithModel(model))
	}
	m, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create anthropic model: %w", err)
	}
	return NewLangChain(m, model, 0.3), nil
}

// Complete implements Completer.
func (l *LangChain) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("langchain complete: messages required")
	}
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(chatMessageType(msg.Role), msg.Content))
	}
	resp, err := l.model.GenerateContent(ctx, content, llms.WithTemperature(l.temperature))
	if err != nil {
		return "", fmt.Errorf("langchain complete (%s): %w", l.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("langchain complete (%s): no response choices", l.name)
	}
	return resp.Choices[0].Content, nil
}

func chatMessageType(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
