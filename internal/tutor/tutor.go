// Package tutor answers free-text questions over the corpus and comments
// on a learner's quiz results.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/remediation"
	"github.com/abhisek/studycast/internal/retrieval"
)

// ErrEmptyQuery is returned by Answer for a blank question.
var ErrEmptyQuery = errors.New("query is empty")

const answerPrompt = `You are a helpful teaching assistant. Answer the user's question using the ` +
	`provided context. If the context does not contain the answer, say so briefly before answering from ` +
	`general knowledge.`

const feedbackPrompt = `You are an encouraging tutor reviewing a learner's quiz. Comment on their ` +
	`overall result, then walk through each missed question: what they chose, why the correct answer ` +
	`is right, and what to review next. Keep it concise and friendly.`

// Retriever supplies context passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) []retrieval.Passage
}

// Config controls a Tutor.
type Config struct {
	RetrievalK        int
	Temperature       float64
	AnswerMaxTokens   int
	FeedbackMaxTokens int
	Logger            *slog.Logger
}

// DefaultConfig returns the recommended settings.
func DefaultConfig() Config {
	return Config{
		RetrievalK:        3,
		Temperature:       0.7,
		AnswerMaxTokens:   500,
		FeedbackMaxTokens: 600,
	}
}

// Answer is the reply to a free-text question.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Context string   `json:"context"`
}

// Tutor answers questions and produces quiz feedback.
type Tutor struct {
	provider  llm.Provider
	retriever Retriever
	config    Config
	logger    *slog.Logger
}

// New creates a Tutor.
func New(provider llm.Provider, retriever Retriever, cfg Config) *Tutor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tutor{provider: provider, retriever: retriever, config: cfg, logger: logger}
}

// Answer retrieves context for query and asks the model to answer it.
func (t *Tutor) Answer(ctx context.Context, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	passages := t.retriever.Retrieve(ctx, query, t.config.RetrievalK)
	joined := retrieval.JoinContext(passages)

	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", joined, query)
	resp, err := t.provider.Generate(llm.WithPurpose(ctx, llm.PurposeAnswer),
		llm.UserPrompt(answerPrompt, user, t.config.AnswerMaxTokens, t.config.Temperature))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	t.logger.Debug("query answered", "passages", len(passages))

	return &Answer{
		Answer:  strings.TrimSpace(resp.Text()),
		Sources: retrieval.Sources(passages),
		Context: joined,
	}, nil
}

// Feedback streams commentary on a finished quiz. records are the missed
// questions, correct is the number answered correctly and total the number
// of submitted answers for known questions. Fragments arrive
// in generation order; the sequence ends after the last fragment or a
// single error.
func (t *Tutor) Feedback(ctx context.Context, records []remediation.Record, correct, total int) iter.Seq2[string, error] {
	req := llm.UserPrompt(feedbackPrompt, buildFeedbackMessage(records, correct, total),
		t.config.FeedbackMaxTokens, t.config.Temperature)
	return t.provider.Stream(llm.WithPurpose(ctx, llm.PurposeFeedback), req)
}

func buildFeedbackMessage(records []remediation.Record, correct, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d of %d correct.\n", correct, total)
	unscored := total - correct - len(records)
	if unscored > 0 {
		fmt.Fprintf(&b, "Answers that could not be scored: %d.\n", unscored)
	}
	if len(records) == 0 {
		if unscored <= 0 {
			b.WriteString("\nEvery question was answered correctly.\n")
		}
		return b.String()
	}

	b.WriteString("\nMissed questions:\n")
	for i, r := range records {
		fmt.Fprintf(&b, "\n%d. [%s] %s\n", i+1, r.Skill, r.Question)
		fmt.Fprintf(&b, "   Chosen: %s\n", r.GivenAnswer)
		fmt.Fprintf(&b, "   Correct: %s\n", r.CorrectAnswer)
		if r.Passage != "" && r.Passage != retrieval.NoContextMarker {
			fmt.Fprintf(&b, "   Reference: %s\n", r.Passage)
		}
	}
	return b.String()
}
