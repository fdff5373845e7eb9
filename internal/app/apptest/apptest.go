// Package apptest builds an App over temporary storage and deterministic
// test doubles.
package apptest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/abhisek/studycast/internal/app"
	"github.com/abhisek/studycast/internal/assessment"
	"github.com/abhisek/studycast/internal/config"
	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/store"
)

// Fixture is a test App and its doubles.
type Fixture struct {
	App      *app.App
	Provider *llm.MockProvider
	Speech   *llm.MockSpeech
}

// New builds an App in t.TempDir(). The App is closed on cleanup.
func New(t *testing.T, responses ...llm.MockResponse) *Fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.DBPath = filepath.Join(dir, "test.db")
	cfg.PublicBaseURL = "http://podcasts.test"

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	f := &Fixture{
		Provider: llm.NewMockProvider(responses...),
		Speech:   &llm.MockSpeech{},
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.App, err = app.Build(ctx, cfg, app.Deps{
		Store:    st,
		Provider: f.Provider,
		Speech:   f.Speech,
		Embedder: llm.NewHashEmbedder(0),
	})
	if err != nil {
		cancel()
		st.Close()
		t.Fatalf("build app: %v", err)
	}
	t.Cleanup(func() {
		f.App.Close()
		cancel()
		st.Close()
	})
	return f
}

// SeedAssessment persists quiz as the current assessment.
func (f *Fixture) SeedAssessment(t *testing.T, quiz *assessment.Assessment) {
	t.Helper()
	if err := assessment.Save(f.App.Docs, quiz); err != nil {
		t.Fatalf("save assessment: %v", err)
	}
}

// SampleAssessment returns a two-question assessment. The first answer of
// each question is correct.
func SampleAssessment() *assessment.Assessment {
	return &assessment.Assessment{Questions: []assessment.Question{
		{
			Skill:  "Goroutines",
			Prompt: "What starts a goroutine?",
			Answers: []assessment.Answer{
				{Text: "The go keyword", IsCorrect: true},
				{Text: "The spawn keyword"},
			},
			Source: "go.pdf",
		},
		{
			Skill:  "Channels",
			Prompt: "What does a channel do?",
			Answers: []assessment.Answer{
				{Text: "Passes values", IsCorrect: true},
				{Text: "Locks memory"},
				{Text: "Allocates stacks"},
			},
			Source: "go.pdf",
		},
	}}
}
