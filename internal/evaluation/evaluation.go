// Package evaluation grades submitted answers against the current
// assessment.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/abhisek/studycast/internal/assessment"
	"github.com/abhisek/studycast/internal/remediation"
	"github.com/abhisek/studycast/internal/retrieval"
)

// NoCorrectAnswer stands in for the correct answer of a question that has
// none marked.
const NoCorrectAnswer = "No correct answer found."

// AnswerSet maps a skill name to the selected answer index as submitted.
// Values are parsed leniently; anything that is not a valid index is
// treated as unanswered.
type AnswerSet map[string]string

// Retriever supplies the remediation passage for a skill.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) []retrieval.Passage
}

// AssessmentLoader returns the current assessment.
type AssessmentLoader func() (*assessment.Assessment, error)

// Evaluator grades answer sets.
type Evaluator struct {
	load      AssessmentLoader
	retriever Retriever
	logger    *slog.Logger
}

// New creates an Evaluator. A nil logger uses slog.Default.
func New(load AssessmentLoader, retriever Retriever, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{load: load, retriever: retriever, logger: logger}
}

// Evaluate returns one remediation record per incorrectly answered
// question, in assessment order. Unknown skills and malformed or
// out-of-range indices are logged and skipped. The only error is a
// missing or unreadable assessment.
func (e *Evaluator) Evaluate(ctx context.Context, answers AnswerSet) ([]remediation.Record, error) {
	a, err := e.load()
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}

	unknown := make([]string, 0)
	for skill := range answers {
		if _, ok := a.Lookup(skill); !ok {
			unknown = append(unknown, skill)
		}
	}
	slices.Sort(unknown)
	for _, skill := range unknown {
		e.logger.Warn("skipping answer for unknown skill", "skill", skill)
	}

	records := make([]remediation.Record, 0)
	for i := range a.Questions {
		q := &a.Questions[i]
		raw, ok := answers[q.Skill]
		if !ok {
			continue
		}

		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || idx < 0 || idx >= len(q.Answers) {
			e.logger.Warn("skipping malformed answer", "skill", q.Skill, "index", raw, "answers", len(q.Answers))
			continue
		}
		if q.Answers[idx].IsCorrect {
			continue
		}

		correct, ok := q.CorrectAnswer()
		if !ok {
			correct = NoCorrectAnswer
		}
		passage := retrieval.NoContextMarker
		if ps := e.retriever.Retrieve(ctx, q.Skill, 1); len(ps) > 0 {
			passage = ps[0].Text
		}

		records = append(records, remediation.Record{
			Skill:         q.Skill,
			Question:      q.Prompt,
			GivenAnswer:   q.Answers[idx].Text,
			CorrectAnswer: correct,
			Passage:       passage,
			Source:        q.Source,
		})
	}
	return records, nil
}

// Score counts correct answers in answers against a.
func Score(a *assessment.Assessment, answers AnswerSet) (correct, total int) {
	for _, q := range a.Questions {
		raw, ok := answers[q.Skill]
		if !ok {
			continue
		}
		total++
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && idx >= 0 && idx < len(q.Answers) && q.Answers[idx].IsCorrect {
			correct++
		}
	}
	return correct, total
}
