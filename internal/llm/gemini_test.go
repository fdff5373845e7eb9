package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.5-flash-lite", "gemini-2.5-flash-lite"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, geminiModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

// The question schema nests answer objects inside an array; Gemini needs
// the whole shape translated, not just the top level.
func TestBuildGeminiSchema_Question(t *testing.T) {
	def := map[string]any{
		"type":        "object",
		"description": "One multiple-choice question",
		"properties": map[string]any{
			"question": map[string]any{"type": "string"},
			"difficulty": map[string]any{
				"type": "string",
				"enum": []any{"intro", "core", "advanced"},
			},
			"answers": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":       map[string]any{"type": "string"},
						"is_correct": map[string]any{"type": "boolean"},
					},
					"required": []any{"text", "is_correct"},
				},
			},
		},
		"required": []any{"question", "answers"},
	}

	schema := buildGeminiSchema(def)

	if schema.Type != genai.TypeObject {
		t.Fatalf("type = %s, want OBJECT", schema.Type)
	}
	if schema.Description != "One multiple-choice question" {
		t.Errorf("description = %q", schema.Description)
	}
	if got := schema.Properties["difficulty"].Enum; len(got) != 3 || got[0] != "intro" {
		t.Errorf("difficulty enum = %v", got)
	}

	answers := schema.Properties["answers"]
	if answers.Type != genai.TypeArray {
		t.Fatalf("answers type = %s, want ARRAY", answers.Type)
	}
	item := answers.Items
	if item == nil || item.Type != genai.TypeObject {
		t.Fatalf("answers items = %+v, want OBJECT", item)
	}
	if item.Properties["is_correct"].Type != genai.TypeBoolean {
		t.Errorf("is_correct type = %s, want BOOLEAN", item.Properties["is_correct"].Type)
	}
	if len(item.Required) != 2 || len(schema.Required) != 2 {
		t.Errorf("required = %v / %v", schema.Required, item.Required)
	}
}
