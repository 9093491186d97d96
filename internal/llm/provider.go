package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model answers with nothing usable
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Provider is the language-model collaborator. Implementations must bound
// every call; callers treat any error as "model unavailable" and degrade.
type Provider interface {
	Complete(ctx context.Context, request *Request) (*Response, error)
}

// Message is a provider-agnostic conversation turn
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Request represents the structured request to the LLM
type Request struct {
	SystemPrompt        string
	Prompt              string
	ConversationHistory []Message
	MaxTokens           int
	Temperature         float64
}

// Response represents the raw response from the LLM
type Response struct {
	Content string
	Usage   *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}
