package llm

import "context"

// Purpose labels name the pipeline stage that issued a request. They are
// recorded with every LLM event and used as a metrics label.
const (
	PurposeSkillTree   = "skill-tree"
	PurposeQuestion    = "question"
	PurposeExplanation = "explanation"
	PurposeAnswer      = "answer"
	PurposeFeedback    = "feedback"
)

// Stage describes one pipeline stage that calls the model.
type Stage struct {
	Purpose string
	Label   string
}

// Stages lists the pipeline stages in the order a document flows through
// them.
var Stages = []Stage{
	{PurposeSkillTree, "skill tree synthesis"},
	{PurposeQuestion, "assessment questions"},
	{PurposeExplanation, "podcast explanations"},
	{PurposeAnswer, "query answers"},
	{PurposeFeedback, "quiz feedback"},
}

// KnownPurpose reports whether purpose is one of the pipeline stages.
func KnownPurpose(purpose string) bool {
	for _, s := range Stages {
		if s.Purpose == purpose {
			return true
		}
	}
	return false
}

type purposeKey struct{}

// WithPurpose attaches a purpose label to ctx.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the purpose label of ctx, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
