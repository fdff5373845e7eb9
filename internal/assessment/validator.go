package assessment

import (
	"fmt"
	"strings"
)

// Validator checks a generated question. Implementations should be
// stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier used in errors and logs.
	Name() string

	// Validate returns nil if the question passes.
	Validate(q *Question) *ValidationError
}

// ValidationError describes why a question failed validation.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// StructuralValidator checks the prompt and answer list are present and
// within limits.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question) *ValidationError {
	if strings.TrimSpace(q.Prompt) == "" {
		return &ValidationError{Validator: v.Name(), Message: "question is empty"}
	}
	if len(q.Prompt) > 1000 {
		return &ValidationError{Validator: v.Name(), Message: "question exceeds 1000 characters"}
	}
	if len(q.Answers) < 2 || len(q.Answers) > 6 {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("expected 2 to 6 answers, got %d", len(q.Answers)),
		}
	}
	for i, a := range q.Answers {
		if strings.TrimSpace(a.Text) == "" {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("answer %d is empty", i)}
		}
	}
	return nil
}

// SingleCorrectValidator requires exactly one correct answer.
type SingleCorrectValidator struct{}

func (v *SingleCorrectValidator) Name() string { return "single-correct" }

func (v *SingleCorrectValidator) Validate(q *Question) *ValidationError {
	n := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			n++
		}
	}
	if n != 1 {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("expected exactly one correct answer, got %d", n),
		}
	}
	return nil
}

// DistinctAnswersValidator rejects options that repeat, ignoring case and
// surrounding whitespace.
type DistinctAnswersValidator struct{}

func (v *DistinctAnswersValidator) Name() string { return "distinct-answers" }

func (v *DistinctAnswersValidator) Validate(q *Question) *ValidationError {
	seen := make(map[string]bool, len(q.Answers))
	for _, a := range q.Answers {
		key := strings.ToLower(strings.TrimSpace(a.Text))
		if seen[key] {
			return &ValidationError{
				Validator: v.Name(),
				Message:   fmt.Sprintf("duplicate answer %q", a.Text),
			}
		}
		seen[key] = true
	}
	return nil
}
