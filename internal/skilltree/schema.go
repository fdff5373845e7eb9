package skilltree

import "github.com/abhisek/studycast/internal/llm"

func skillNode(description string, children map[string]any) map[string]any {
	props := map[string]any{
		"name":        map[string]any{"type": "string", "description": "Short, unique skill name"},
		"description": map[string]any{"type": "string", "description": "One sentence on what mastering this skill means"},
	}
	required := []any{"name", "description"}
	if children != nil {
		props["children"] = map[string]any{"type": "array", "items": children}
		required = append(required, "children")
	}
	return map[string]any{
		"type":                 "object",
		"description":          description,
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// TreeSchema is the structured output of skill-tree synthesis. Providers do
// not accept recursive schemas, so the shape is fixed at
// root, topics and leaf skills.
var TreeSchema = &llm.Schema{
	Name:        "skill-tree",
	Description: "A hierarchical skill tree covering the topics of the provided documents",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"root": skillNode("The subject area as a whole",
				skillNode("A topic grouping related skills",
					skillNode("A leaf skill that one quiz question can test", nil))),
		},
		"required":             []any{"root"},
		"additionalProperties": false,
	},
}
