package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	responses []*llms.ContentResponse
	errs      []error
	calls     int
	lastMsgs  []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	i := f.calls
	f.calls++
	f.lastMsgs = messages
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textResponse(s string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        s,
		GenerationInfo: map[string]any{"PromptTokens": 12, "CompletionTokens": 3},
	}}}
}

func newTestProvider(m llms.Model) *LangChainProvider {
	p := NewLangChainProvider(m, "fake", time.Second, logger.NewNop())
	p.policy.InitialDelay = time.Millisecond
	p.policy.MaxDelay = time.Millisecond
	return p
}

func TestCompleteBuildsConversation(t *testing.T) {
	m := &fakeModel{responses: []*llms.ContentResponse{textResponse("  troubleshoot \n")}}
	p := newTestProvider(m)

	resp, err := p.Complete(context.Background(), &Request{
		SystemPrompt: "classify",
		Prompt:       "my fridge is warm",
		ConversationHistory: []Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "tool", Content: "ignored"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "troubleshoot", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 3, resp.Usage.OutputTokens)

	require.Len(t, m.lastMsgs, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, m.lastMsgs[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.lastMsgs[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, m.lastMsgs[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.lastMsgs[3].Role)
	assert.Equal(t, llms.TextContent{Text: "my fridge is warm"}, m.lastMsgs[3].Parts[0])
}

func TestCompleteRetriesTransientOnce(t *testing.T) {
	m := &fakeModel{
		errs:      []error{retry.Transient(errors.New("connection reset by peer"))},
		responses: []*llms.ContentResponse{nil, textResponse("ok")},
	}
	p := newTestProvider(m)

	resp, err := p.Complete(context.Background(), &Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, m.calls)
}

func TestCompleteFailsOnPermanentError(t *testing.T) {
	m := &fakeModel{
		errs:      []error{errors.New("401 unauthorized")},
		responses: []*llms.ContentResponse{textResponse("never")},
	}
	p := newTestProvider(m)

	_, err := p.Complete(context.Background(), &Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, m.calls)
}

func TestCompleteEmptyAnswer(t *testing.T) {
	m := &fakeModel{responses: []*llms.ContentResponse{textResponse("   ")}}
	p := newTestProvider(m)

	_, err := p.Complete(context.Background(), &Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	m2 := &fakeModel{responses: []*llms.ContentResponse{{}}}
	_, err = newTestProvider(m2).Complete(context.Background(), &Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
