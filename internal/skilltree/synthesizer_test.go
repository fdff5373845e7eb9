package skilltree

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/studycast/internal/corpus"
	"github.com/abhisek/studycast/internal/llm"
)

func treeJSON() json.RawMessage {
	return json.RawMessage(`{
		"root": {
			"name": "Go",
			"description": "The Go language",
			"children": [
				{"name": "Concurrency", "description": "Running work in parallel", "children": [
					{"name": "Goroutines", "description": "Start concurrent work"},
					{"name": "Channels", "description": "Communicate between goroutines"}
				]}
			]
		}
	}`)
}

func testChunks() []corpus.Chunk {
	return []corpus.Chunk{
		{Text: "Goroutines are lightweight threads.", Source: "go.pdf"},
		{Text: "Channels pass values between goroutines.", Source: "go.pdf"},
	}
}

func TestSynthesize(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: treeJSON()})
	s := New(mock, DefaultConfig())

	tree, err := s.Synthesize(context.Background(), testChunks())
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if tree.Root.Name != "Go" {
		t.Errorf("root = %q", tree.Root.Name)
	}
	if n := len(tree.Leaves()); n != 2 {
		t.Errorf("leaves = %d, want 2", n)
	}

	req := mock.Requests()[0]
	if req.Schema != TreeSchema {
		t.Error("expected TreeSchema on request")
	}
	if !strings.Contains(req.Messages[0].Content, "Channels pass values") {
		t.Error("prompt should include the corpus text")
	}
	if !strings.Contains(req.Messages[0].Content, "source: go.pdf") {
		t.Error("prompt should include chunk sources")
	}
}

func TestSynthesizeEmptyCorpus(t *testing.T) {
	mock := llm.NewMockProvider()
	s := New(mock, DefaultConfig())

	_, err := s.Synthesize(context.Background(), nil)
	if !errors.Is(err, corpus.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Error("provider should not be called for an empty corpus")
	}
}

func TestSynthesizeProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	s := New(mock, DefaultConfig())

	_, err := s.Synthesize(context.Background(), testChunks())
	var unavailable *llm.ErrProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSynthesizeEmptyTree(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"root": {"name": "Go", "description": "", "children": []}}`),
	})
	s := New(mock, DefaultConfig())

	_, err := s.Synthesize(context.Background(), testChunks())
	if !errors.Is(err, ErrEmptyTree) {
		t.Fatalf("expected ErrEmptyTree, got %v", err)
	}
}

func TestSynthesizeMalformedJSON(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"root":`)})
	s := New(mock, DefaultConfig())

	if _, err := s.Synthesize(context.Background(), testChunks()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestBuildUserMessageRespectsBudget(t *testing.T) {
	chunks := []corpus.Chunk{
		{Text: strings.Repeat("a", 100), Source: "one"},
		{Text: strings.Repeat("b", 100), Source: "two"},
	}
	msg := buildUserMessage(chunks, 150)
	if !strings.Contains(msg, "source: one") {
		t.Error("first chunk must always be included")
	}
	if strings.Contains(msg, "source: two") {
		t.Error("second chunk exceeds the budget and should be dropped")
	}
}
