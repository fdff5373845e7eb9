package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/studycast/internal/assessment"
	"github.com/abhisek/studycast/internal/docstore"
	"github.com/abhisek/studycast/internal/retrieval"
)

type fakeRetriever struct {
	passages []retrieval.Passage
	queries  []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, k int) []retrieval.Passage {
	f.queries = append(f.queries, query)
	return f.passages[:min(k, len(f.passages))]
}

func fixedAssessment() *assessment.Assessment {
	return &assessment.Assessment{Questions: []assessment.Question{
		{
			Skill:  "topic",
			Prompt: "Pick A",
			Answers: []assessment.Answer{
				{Text: "A", IsCorrect: true},
				{Text: "B", IsCorrect: false},
			},
			Source: "notes.md",
		},
		{
			Skill:  "other",
			Prompt: "Pick D",
			Answers: []assessment.Answer{
				{Text: "C"},
				{Text: "D", IsCorrect: true},
			},
			Source: "book.pdf",
		},
	}}
}

func loader(a *assessment.Assessment) AssessmentLoader {
	return func() (*assessment.Assessment, error) { return a, nil }
}

func TestEvaluateWrongAnswer(t *testing.T) {
	r := &fakeRetriever{passages: []retrieval.Passage{{Text: "A is right because...", Source: "notes.md"}}}
	e := New(loader(fixedAssessment()), r, nil)

	recs, err := e.Evaluate(context.Background(), AnswerSet{"topic": "1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "topic", rec.Skill)
	assert.Equal(t, "A", rec.CorrectAnswer)
	assert.Equal(t, "B", rec.GivenAnswer)
	assert.Equal(t, "Pick A", rec.Question)
	assert.Equal(t, "A is right because...", rec.Passage)
	assert.Equal(t, "notes.md", rec.Source)
	assert.Equal(t, []string{"topic"}, r.queries)
}

func TestEvaluateCorrectAnswerProducesNothing(t *testing.T) {
	r := &fakeRetriever{}
	e := New(loader(fixedAssessment()), r, nil)

	recs, err := e.Evaluate(context.Background(), AnswerSet{"topic": "0", "other": "1"})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, r.queries, "no retrieval for correct answers")
}

func TestEvaluateSkipsBadInput(t *testing.T) {
	e := New(loader(fixedAssessment()), &fakeRetriever{}, nil)

	recs, err := e.Evaluate(context.Background(), AnswerSet{
		"topic":   "5",
		"other":   "abc",
		"missing": "0",
	})
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = e.Evaluate(context.Background(), AnswerSet{"topic": "-1"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestEvaluateNoContext(t *testing.T) {
	e := New(loader(fixedAssessment()), &fakeRetriever{}, nil)

	recs, err := e.Evaluate(context.Background(), AnswerSet{"other": " 0 "})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, retrieval.NoContextMarker, recs[0].Passage)
	assert.Equal(t, "D", recs[0].CorrectAnswer)
}

func TestEvaluateFollowsAssessmentOrder(t *testing.T) {
	e := New(loader(fixedAssessment()), &fakeRetriever{}, nil)

	recs, err := e.Evaluate(context.Background(), AnswerSet{"other": "0", "topic": "1"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "topic", recs[0].Skill)
	assert.Equal(t, "other", recs[1].Skill)
}

func TestEvaluateNoCorrectAnswerMarked(t *testing.T) {
	a := &assessment.Assessment{Questions: []assessment.Question{{
		Skill: "broken", Prompt: "?", Answers: []assessment.Answer{{Text: "x"}, {Text: "y"}},
	}}}
	e := New(loader(a), &fakeRetriever{}, nil)

	recs, err := e.Evaluate(context.Background(), AnswerSet{"broken": "0"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, NoCorrectAnswer, recs[0].CorrectAnswer)
}

func TestEvaluateMissingAssessment(t *testing.T) {
	ds, err := docstore.New(t.TempDir())
	require.NoError(t, err)
	e := New(func() (*assessment.Assessment, error) { return assessment.Load(ds) }, &fakeRetriever{}, nil)

	_, err = e.Evaluate(context.Background(), AnswerSet{"topic": "1"})
	assert.True(t, errors.Is(err, docstore.ErrNotFound), "got %v", err)
}

func TestScore(t *testing.T) {
	correct, total := Score(fixedAssessment(), AnswerSet{"topic": "0", "other": "0", "missing": "1"})
	assert.Equal(t, 1, correct)
	assert.Equal(t, 2, total)
}
