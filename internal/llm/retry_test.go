package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

var treeOutput = json.RawMessage(`{"root":{"name":"Go","children":[{"name":"Goroutines"}]}}`)

func down() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("connection refused")}}
}

func rejected() MockResponse {
	return MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`{"root":{}}`), Err: errors.New("missing name")}}
}

func TestRetry_Generate(t *testing.T) {
	tests := []struct {
		name      string
		responses []MockResponse
		wantCalls int
		wantErr   bool
	}{
		{"first attempt", []MockResponse{{Content: treeOutput}}, 1, false},
		{"outage then success", []MockResponse{down(), {Content: treeOutput}}, 2, false},
		{"outage on every attempt", []MockResponse{down(), down(), down(), {Content: treeOutput}}, 3, true},
		{"rate limit honours retry-after", []MockResponse{
			{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}},
			{Content: treeOutput},
		}, 2, false},
		{"schema rejection retried once", []MockResponse{rejected(), {Content: treeOutput}}, 2, false},
		{"second schema rejection is final", []MockResponse{rejected(), rejected(), {Content: treeOutput}}, 2, true},
		{"truncated output not retried", []MockResponse{
			{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"root":{"name":"Go","chil`)}},
			{Content: treeOutput},
		}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			p := WithRetry(mock, retryConfig())

			resp, err := p.Generate(context.Background(), Request{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if string(resp.Content) != string(treeOutput) {
					t.Fatalf("unexpected content: %s", resp.Content)
				}
			}
			if mock.CallCount() != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, mock.CallCount())
			}
		})
	}
}

func TestRetry_TruncatedOutputKeepsType(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{}`)}})
	_, err := WithRetry(mock, retryConfig()).Generate(context.Background(), Request{})

	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got: %T", err)
	}
}

func TestRetry_CancelledContextStopsWaiting(t *testing.T) {
	mock := NewMockProvider(down(), down(), MockResponse{Content: treeOutput})
	p := WithRetry(mock, retryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetry_ModelIDDelegates(t *testing.T) {
	if id := WithRetry(NewMockProvider(), retryConfig()).ModelID(); id != "mock" {
		t.Fatalf("expected 'mock', got %q", id)
	}
}

func TestRetry_FeedbackStreamRetriesBeforeFirstFragment(t *testing.T) {
	mock := NewMockProvider(down(), MockResponse{Chunks: []string{"Review ", "channels."}})
	p := WithRetry(mock, retryConfig())

	text, err := Collect(p.Stream(context.Background(), Request{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Review channels." {
		t.Fatalf("unexpected text %q", text)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_FeedbackStreamNotRepeatedAfterOutput(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Chunks: []string{"Good "}, Err: &ErrProviderUnavailable{Err: errors.New("stream reset")}},
		MockResponse{Chunks: []string{"duplicate"}},
	)
	p := WithRetry(mock, retryConfig())

	text, err := Collect(p.Stream(context.Background(), Request{}))
	if err == nil {
		t.Fatal("expected error")
	}
	if text != "Good " {
		t.Fatalf("unexpected text %q", text)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}
