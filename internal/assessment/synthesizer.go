package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/metrics"
	"github.com/abhisek/studycast/internal/retrieval"
	"github.com/abhisek/studycast/internal/skilltree"
)

const systemPrompt = `You are a tutor writing a quiz for self-study.

Rules:
- Write one multiple-choice question that tests the given skill.
- Base the question and the correct answer strictly on the provided context.
- Provide exactly 4 options where exactly one is correct.
- Distractors should be plausible misconceptions, not obviously wrong.
- The question must be understandable without seeing the context.`

// UnknownSource is the provenance of questions generated without any
// retrieved context.
const UnknownSource = "unknown"

// Retriever supplies context passages for a skill.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) []retrieval.Passage
}

// Config controls a Synthesizer.
type Config struct {
	// Validators run in order on every question; the first failure skips
	// the skill.
	Validators []Validator

	// MaxQuestions caps the assessment size. Leaves beyond the cap are
	// not asked.
	MaxQuestions int

	// RetrievalK is the number of passages retrieved per skill.
	RetrievalK int

	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// DefaultConfig returns a Config with the standard validator chain and
// recommended defaults.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&SingleCorrectValidator{},
			&DistinctAnswersValidator{},
		},
		MaxQuestions: 15,
		RetrievalK:   3,
		MaxTokens:    512,
		Temperature:  0.7,
	}
}

// Synthesizer builds an Assessment from a skill tree.
type Synthesizer struct {
	provider  llm.Provider
	retriever Retriever
	config    Config
	logger    *slog.Logger
}

// New creates a Synthesizer.
func New(provider llm.Provider, retriever Retriever, cfg Config) *Synthesizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{provider: provider, retriever: retriever, config: cfg, logger: logger}
}

// questionOutput is the raw LLM response before validation.
type questionOutput struct {
	Question string   `json:"question"`
	Answers  []Answer `json:"answers"`
}

// Synthesize generates one question per leaf skill of tree, in leaf
// order. A leaf whose generation or validation fails is logged and
// skipped. Only context cancellation aborts the batch.
func (s *Synthesizer) Synthesize(ctx context.Context, tree *skilltree.Tree) (*Assessment, error) {
	leaves := tree.Leaves()
	if s.config.MaxQuestions > 0 && len(leaves) > s.config.MaxQuestions {
		s.logger.Info("capping assessment size", "leaves", len(leaves), "max", s.config.MaxQuestions)
		leaves = leaves[:s.config.MaxQuestions]
	}

	m := metrics.Get()
	a := &Assessment{Questions: make([]Question, 0, len(leaves))}
	for _, leaf := range leaves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q, err := s.generate(ctx, leaf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.QuestionsSkipped.Inc()
			s.logger.Warn("skipping skill: question generation failed", "skill", leaf.Name, "err", err)
			continue
		}
		m.QuestionsBuilt.Inc()
		a.Questions = append(a.Questions, *q)
	}

	s.logger.Info("assessment synthesized", "questions", len(a.Questions), "leaves", len(leaves))
	return a, nil
}

func (s *Synthesizer) generate(ctx context.Context, skill skilltree.Skill) (*Question, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestion)

	query := skill.Name
	if skill.Description != "" {
		query += ": " + skill.Description
	}
	passages := s.retriever.Retrieve(ctx, query, s.config.RetrievalK)

	req := llm.UserPrompt(systemPrompt, buildUserMessage(skill, passages), s.config.MaxTokens, s.config.Temperature)
	req.Schema = QuestionSchema

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw questionOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	q := &Question{
		Skill:   skill.Name,
		Prompt:  strings.TrimSpace(raw.Question),
		Answers: raw.Answers,
		Source:  UnknownSource,
	}
	if len(passages) > 0 {
		q.Source = passages[0].Source
	}

	for _, v := range s.config.Validators {
		if verr := v.Validate(q); verr != nil {
			return nil, verr
		}
	}
	return q, nil
}

func buildUserMessage(skill skilltree.Skill, passages []retrieval.Passage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Skill: %s\n", skill.Name)
	if skill.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", skill.Description)
	}
	b.WriteString("\nContext:\n")
	b.WriteString(retrieval.JoinContext(passages))
	return b.String()
}
