package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("model passed through", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey: "sk-or-test",
			Model:  "anthropic/claude-3-haiku",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "anthropic/claude-3-haiku" {
			t.Errorf("model = %q", p.ModelID())
		}
	})

	t.Run("empty API key", func(t *testing.T) {
		if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "meta-llama/llama-3-8b"}); err == nil {
			t.Fatal("expected error for empty API key")
		}
	})
}

func TestOpenRouterProvider_AnswerRequest(t *testing.T) {
	var gotPath, gotAuth, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "gen-1",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   body.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "A goroutine is a lightweight thread."},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 9, "total_tokens": 39},
		})
	}))
	t.Cleanup(server.Close)

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or-test",
		Model:   "google/gemini-2.0-flash-exp",
		BaseURL: server.URL + "/api/v1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := p.Generate(context.Background(), UserPrompt("Answer from the context.", "What is a goroutine?", 500, 0.7))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(resp.Content) != "A goroutine is a lightweight thread." {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 39 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
	if gotPath != "/api/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-or-test" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotModel != "google/gemini-2.0-flash-exp" {
		t.Errorf("model sent = %q", gotModel)
	}
}
