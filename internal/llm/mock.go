package llm

import (
	"context"
	"encoding/json"
	"iter"
	"strings"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error

	// Chunks, when set, are the fragments Stream yields. Otherwise Stream
	// splits Content on spaces.
	Chunks []string
}

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order and records all requests.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) next(req Request) (MockResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if len(m.responses) == 0 {
		return MockResponse{}, false
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, true
}

// Generate returns the next canned response or ErrProviderUnavailable if
// the queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	resp, ok := m.next(req)
	if !ok {
		return nil, &ErrProviderUnavailable{}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{
		Content:    resp.Content,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// Stream yields the next canned response as fragments. A canned error is
// yielded after any configured Chunks.
func (m *MockProvider) Stream(_ context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, ok := m.next(req)
		if !ok {
			yield("", &ErrProviderUnavailable{})
			return
		}

		chunks := resp.Chunks
		if chunks == nil && len(resp.Content) > 0 {
			chunks = strings.SplitAfter(string(resp.Content), " ")
		}
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if resp.Err != nil {
			yield("", resp.Err)
		}
	}
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate and Stream calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Requests returns a copy of the recorded requests.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.Calls...)
}
