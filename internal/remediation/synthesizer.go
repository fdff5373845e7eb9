package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/metrics"
)

const systemPrompt = `You are a learning coach for software developers. Explain the question in plain, ` +
	`spoken language, using the background knowledge from the provided context. The text will be read aloud, ` +
	`so avoid lists, code blocks and markup.`

// Config controls a Synthesizer.
type Config struct {
	Voice       string
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// DefaultConfig returns the recommended settings.
func DefaultConfig() Config {
	return Config{
		Voice:       "nova",
		MaxTokens:   500,
		Temperature: 0.7,
	}
}

// Summary counts the outcomes of one Process call.
type Summary struct {
	Created int
	Skipped int
	Failed  int
}

// Synthesizer produces one explanation podcast per remediation record.
type Synthesizer struct {
	provider  llm.Provider
	speech    llm.Speech
	artifacts *Artifacts
	config    Config
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer writing into artifacts.
func NewSynthesizer(provider llm.Provider, speech llm.Speech, artifacts *Artifacts, cfg Config) *Synthesizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		provider:  provider,
		speech:    speech,
		artifacts: artifacts,
		config:    cfg,
		logger:    logger,
	}
}

// Process handles records in order. A skill that already has an audio
// artifact is skipped without any external call. Failures are logged and
// do not stop the remaining records.
func (s *Synthesizer) Process(ctx context.Context, records []Record) Summary {
	var sum Summary
	jobs := metrics.Get().RemediationJobs

	for _, rec := range records {
		if ctx.Err() != nil {
			s.logger.Warn("remediation cancelled", "remaining", len(records)-sum.Created-sum.Skipped-sum.Failed)
			break
		}

		created, err := s.processOne(ctx, rec)
		switch {
		case err != nil:
			sum.Failed++
			jobs.WithLabelValues("failed").Inc()
			s.logger.Warn("podcast generation failed", "skill", rec.Skill, "err", err)
		case created:
			sum.Created++
			jobs.WithLabelValues("created").Inc()
			s.logger.Info("podcast created", "skill", rec.Skill, "file", FileName(rec.Skill))
		default:
			sum.Skipped++
			jobs.WithLabelValues("skipped").Inc()
			s.logger.Debug("podcast already exists", "skill", rec.Skill)
		}
	}
	return sum
}

func (s *Synthesizer) processOne(ctx context.Context, rec Record) (bool, error) {
	if strings.TrimSpace(rec.Skill) == "" {
		return false, errors.New("record has no skill")
	}
	exists, err := s.artifacts.Exists(rec.Skill)
	if err != nil {
		return false, fmt.Errorf("check artifact: %w", err)
	}
	if exists {
		return false, nil
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeExplanation)
	resp, err := s.provider.Generate(ctx, llm.UserPrompt(systemPrompt, buildUserMessage(rec),
		s.config.MaxTokens, s.config.Temperature))
	if err != nil {
		return false, fmt.Errorf("generate explanation: %w", err)
	}
	explanation := strings.TrimSpace(resp.Text())
	if explanation == "" {
		return false, errors.New("generate explanation: empty response")
	}

	audio, err := s.speech.Synthesize(ctx, s.config.Voice, explanation)
	if err != nil {
		return false, fmt.Errorf("synthesize speech: %w", err)
	}
	if err := s.artifacts.Write(rec.Skill, audio); err != nil {
		return false, fmt.Errorf("write audio: %w", err)
	}
	return true, nil
}

func buildUserMessage(rec Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The learner's question:\n%s\n\n", rec.Question)
	if rec.GivenAnswer != "" {
		fmt.Fprintf(&b, "They answered: %s\n", rec.GivenAnswer)
	}
	if rec.CorrectAnswer != "" {
		fmt.Fprintf(&b, "The correct answer: %s\n", rec.CorrectAnswer)
	}
	fmt.Fprintf(&b, "\nContext for the answer (background knowledge):\n%s\n\n", rec.Passage)
	b.WriteString("Explain what the correct answer would have been and why. Also explain why this question matters.")
	return b.String()
}
