package assessment

import "github.com/abhisek/studycast/internal/llm"

// QuestionSchema defines the JSON schema for question generation responses.
var QuestionSchema = &llm.Schema{
	Name:        "quiz-question",
	Description: "A single multiple-choice question testing one skill",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question shown to the learner",
			},
			"answers": map[string]any{
				"type":        "array",
				"description": "Exactly 4 options, exactly one of them correct",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{
							"type":        "string",
							"description": "The option text",
						},
						"is_correct": map[string]any{
							"type":        "boolean",
							"description": "Whether this option is the correct answer",
						},
					},
					"required":             []any{"text", "is_correct"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"question", "answers"},
		"additionalProperties": false,
	},
}
