package llm

import (
	"context"
	"fmt"
)

// StubClient is an in-memory Client for tests (grounded on the teacher's
// core/mock_discovery.go pattern of canned, deterministic fakes). It can
// return a fixed response, step through a queue of responses (repeating
// the last one once the queue is exhausted), or always
// fail to exercise fallback paths.
type StubClient struct {
	Responses []string
	calls     int
	FailAlways bool
	FailErr   error
}

// NewStubClient returns a client that always answers with response.
func NewStubClient(response string) *StubClient {
	return &StubClient{Responses: []string{response}}
}

// NewFailingStubClient returns a client that always fails, simulating an
// absent or broken LLM.
func NewFailingStubClient() *StubClient {
	return &StubClient{FailAlways: true, FailErr: fmt.Errorf("stub llm: forced failure")}
}

func (s *StubClient) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.FailAlways {
		if s.FailErr != nil {
			return "", s.FailErr
		}
		return "", fmt.Errorf("stub llm failure")
	}
	if len(s.Responses) == 0 {
		return "", fmt.Errorf("stub llm: no canned responses configured")
	}
	idx := s.calls - 1
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	return s.Responses[idx], nil
}

// CallCount returns how many times Complete was invoked.
func (s *StubClient) CallCount() int { return s.calls }
