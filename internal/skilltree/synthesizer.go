package skilltree

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/studycast/internal/corpus"
	"github.com/abhisek/studycast/internal/llm"
)

const systemPrompt = `You are a curriculum designer. You derive a skill tree from study material.

Rules:
- The root names the overall subject of the material.
- Group the material into topics. Each topic contains the concrete skills a learner must master.
- Every leaf skill must be answerable with one multiple-choice question based on the material.
- Leaf skill names must be unique, short and descriptive.
- Only cover what the material actually teaches.`

// Config controls a Synthesizer.
type Config struct {
	// MaxContextChars bounds the corpus text placed in the prompt.
	MaxContextChars int
	MaxTokens       int
	Temperature     float64
	Logger          *slog.Logger
}

// DefaultConfig returns the recommended settings.
func DefaultConfig() Config {
	return Config{
		MaxContextChars: 24000,
		MaxTokens:       2048,
		Temperature:     0.3,
	}
}

// Synthesizer turns a corpus snapshot into a skill tree.
type Synthesizer struct {
	provider llm.Provider
	config   Config
	logger   *slog.Logger
}

// New creates a Synthesizer.
func New(provider llm.Provider, cfg Config) *Synthesizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{provider: provider, config: cfg, logger: logger}
}

// Synthesize generates a tree from chunks. Chunk order does not matter.
// Any failure is returned and nothing is persisted.
func (s *Synthesizer) Synthesize(ctx context.Context, chunks []corpus.Chunk) (*Tree, error) {
	if len(chunks) == 0 {
		return nil, corpus.ErrEmptyCorpus
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeSkillTree)

	req := llm.UserPrompt(systemPrompt, buildUserMessage(chunks, s.config.MaxContextChars),
		s.config.MaxTokens, s.config.Temperature)
	req.Schema = TreeSchema

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("skill tree generation failed: %w", err)
	}

	var tree Tree
	if err := json.Unmarshal(resp.Content, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse skill tree: %w", err)
	}
	if err := tree.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("skill tree synthesized", "root", tree.Root.Name, "leaves", len(tree.Leaves()))
	return &tree, nil
}

// buildUserMessage lists the chunks with their sources, stopping before
// the character budget is exceeded. At least one chunk is always included.
func buildUserMessage(chunks []corpus.Chunk, maxChars int) string {
	var b strings.Builder
	b.WriteString("Study material:\n")
	for i, c := range chunks {
		entry := fmt.Sprintf("\n[%d] (source: %s)\n%s\n", i+1, c.Source, strings.TrimSpace(c.Text))
		if i > 0 && maxChars > 0 && b.Len()+len(entry) > maxChars {
			break
		}
		b.WriteString(entry)
	}
	b.WriteString("\nDerive the skill tree for this material.")
	return b.String()
}
