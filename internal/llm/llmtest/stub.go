// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/avvvet/partsbuddy-agent/internal/llm"
)

// Stub answers with Content, or fails with Err. Calls are recorded.
type Stub struct {
	mu       sync.Mutex
	Content  string
	Err      error
	Requests []*llm.Request
}

func (s *Stub) Complete(ctx context.Context, request *llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, request)
	if s.Err != nil {
		return nil, s.Err
	}
	return &llm.Response{Content: s.Content}, nil
}

func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}
