package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/retry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

const module = "llm"

// LangChainProvider adapts any langchaingo model to Provider
type LangChainProvider struct {
	model  llms.Model
	name   string
	policy retry.Policy
	logger logger.ILogger
}

func NewLangChainProvider(model llms.Model, name string, timeout time.Duration, log logger.ILogger) *LangChainProvider {
	return &LangChainProvider{
		model:  model,
		name:   name,
		policy: retry.DefaultPolicy(timeout),
		logger: log,
	}
}

// NewOpenAIProvider talks to any OpenAI-compatible endpoint (OpenRouter, vLLM, Ollama)
func NewOpenAIProvider(apiKey, baseURL, model string, timeout time.Duration, log logger.ILogger) (*LangChainProvider, error) {
	m, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewLangChainProvider(m, model, timeout, log), nil
}

func NewAnthropicProvider(apiKey, model string, timeout time.Duration, log logger.ILogger) (*LangChainProvider, error) {
	m, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return NewLangChainProvider(m, model, timeout, log), nil
}

func (p *LangChainProvider) Complete(ctx context.Context, request *Request) (*Response, error) {
	messages := buildMessages(request)

	opts := []llms.CallOption{llms.WithTemperature(request.Temperature)}
	if request.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(request.MaxTokens))
	}

	start := time.Now()
	resp, err := retry.Do(ctx, p.policy, func(ctx context.Context) (*llms.ContentResponse, error) {
		return p.model.GenerateContent(ctx, messages, opts...)
	})
	if err != nil {
		p.logger.Warn(module, "LLM call failed", map[string]interface{}{
			"model":    p.name,
			"error":    err.Error(),
			"duration": time.Since(start).String(),
		})
		return nil, fmt.Errorf("llm call failed: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	p.logger.Debug(module, "LLM call completed", map[string]interface{}{
		"model":    p.name,
		"duration": time.Since(start).String(),
	})

	return &Response{
		Content: content,
		Usage:   usageFrom(choice.GenerationInfo),
	}, nil
}

func buildMessages(request *Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(request.ConversationHistory)+2)

	if request.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, request.SystemPrompt))
	}

	for _, msg := range request.ConversationHistory {
		switch msg.Role {
		case "user":
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case "assistant":
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
		case "system":
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		}
	}

	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, request.Prompt))
}

// usageFrom reads token counts the openai and anthropic backends report
func usageFrom(info map[string]any) *Usage {
	if info == nil {
		return nil
	}
	in, okIn := intValue(info, "PromptTokens", "InputTokens")
	out, okOut := intValue(info, "CompletionTokens", "OutputTokens")
	if !okIn && !okOut {
		return nil
	}
	return &Usage{InputTokens: in, OutputTokens: out}
}

func intValue(info map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		}
	}
	return 0, false
}
