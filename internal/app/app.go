// Package app wires the studycast pipeline together. The HTTP server, the
// MCP server and the CLI all run against the same App.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/studycast/internal/assessment"
	"github.com/abhisek/studycast/internal/config"
	"github.com/abhisek/studycast/internal/corpus"
	"github.com/abhisek/studycast/internal/docpipe"
	"github.com/abhisek/studycast/internal/docstore"
	"github.com/abhisek/studycast/internal/evaluation"
	"github.com/abhisek/studycast/internal/feed"
	"github.com/abhisek/studycast/internal/ingest"
	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/remediation"
	"github.com/abhisek/studycast/internal/retrieval"
	"github.com/abhisek/studycast/internal/skilltree"
	"github.com/abhisek/studycast/internal/store"
	"github.com/abhisek/studycast/internal/tutor"
)

// Deps are the external capabilities an App is built from.
type Deps struct {
	Store    *store.Store
	Provider llm.Provider
	Speech   llm.Speech
	Embedder llm.Embedder
	Logger   *slog.Logger
}

// App holds every pipeline component.
type App struct {
	Config *config.Config
	Store  *store.Store
	Docs   *docstore.Store
	Logger *slog.Logger

	Corpus    *corpus.Store
	Retriever *retrieval.Adapter
	Tutor     *tutor.Tutor
	Evaluator *evaluation.Evaluator
	Artifacts *remediation.Artifacts
	Queue     *remediation.Queue
	Feed      *feed.Publisher
	Ingest    *ingest.Coordinator

	ownsStore bool
}

// New opens the database and builds the LLM clients from lc, then wires
// the App. Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config, lc llm.Config, logger *slog.Logger) (*App, error) {
	if err := store.EnsureDir(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	lc = cfg.ApplyLLM(lc)
	provider, err := llm.NewProvider(ctx, lc, st.EventRepo())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("LLM provider: %w", err)
	}

	a, err := Build(ctx, cfg, Deps{
		Store:    st,
		Provider: provider,
		Speech:   llm.NewSpeech(lc.Speech),
		Embedder: llm.NewEmbedder(lc.Embedding),
		Logger:   logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	a.ownsStore = true
	return a, nil
}

// Build wires an App from already constructed dependencies. Background
// remediation workers run under ctx.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	docs, err := docstore.New(cfg.DocsDir())
	if err != nil {
		return nil, err
	}
	artifacts, err := remediation.NewArtifacts(cfg.AudioDir())
	if err != nil {
		return nil, err
	}

	cs := corpus.New(deps.Store.ChunkRepo(), deps.Embedder, corpus.Config{
		Chunking: docpipe.Options{MaxTokens: cfg.Chunk.Size, OverlapTokens: cfg.Chunk.Overlap},
		Logger:   logger.With("component", "corpus"),
	})
	retriever := retrieval.New(cs, logger.With("component", "retrieval"))

	treeCfg := skilltree.DefaultConfig()
	treeCfg.Logger = logger.With("component", "skilltree")

	quizCfg := assessment.DefaultConfig()
	quizCfg.MaxQuestions = cfg.MaxQuestions
	quizCfg.RetrievalK = cfg.RetrievalK
	quizCfg.Logger = logger.With("component", "assessment")

	coord, err := ingest.New(cs,
		skilltree.New(deps.Provider, treeCfg),
		assessment.New(deps.Provider, retriever, quizCfg),
		docs,
		ingest.Config{
			UploadDir:     cfg.UploadDir(),
			SnapshotLimit: cfg.SnapshotLimit,
			Logger:        logger.With("component", "ingest"),
		})
	if err != nil {
		return nil, err
	}

	remCfg := remediation.DefaultConfig()
	remCfg.Voice = cfg.Voice
	remCfg.Logger = logger.With("component", "remediation")
	synth := remediation.NewSynthesizer(deps.Provider, deps.Speech, artifacts, remCfg)

	tutorCfg := tutor.DefaultConfig()
	tutorCfg.RetrievalK = cfg.RetrievalK
	tutorCfg.Logger = logger.With("component", "tutor")

	return &App{
		Config:    cfg,
		Store:     deps.Store,
		Docs:      docs,
		Logger:    logger,
		Corpus:    cs,
		Retriever: retriever,
		Tutor:     tutor.New(deps.Provider, retriever, tutorCfg),
		Evaluator: evaluation.New(func() (*assessment.Assessment, error) {
			return assessment.Load(docs)
		}, retriever, logger.With("component", "evaluation")),
		Artifacts: artifacts,
		Queue:     remediation.NewQueue(ctx, synth, cfg.Queue.Size, cfg.Queue.Workers, logger.With("component", "queue")),
		Feed:      feed.NewPublisher(artifacts, feed.DefaultConfig(cfg.BaseURL())),
		Ingest:    coord,
	}, nil
}

// Assessment returns the current assessment.
func (a *App) Assessment() (*assessment.Assessment, error) {
	return assessment.Load(a.Docs)
}

// Evaluate scores answers and returns the remediation records for every
// missed question along with the score.
func (a *App) Evaluate(ctx context.Context, answers evaluation.AnswerSet) (*Evaluation, error) {
	quiz, err := a.Assessment()
	if err != nil {
		return nil, err
	}
	records, err := a.Evaluator.Evaluate(ctx, answers)
	if err != nil {
		return nil, err
	}
	correct, total := evaluation.Score(quiz, answers)
	return &Evaluation{Records: records, Correct: correct, Total: total}, nil
}

// Evaluation is the outcome of scoring one answer set.
type Evaluation struct {
	Records []remediation.Record `json:"records"`
	Correct int                  `json:"correct"`
	Total   int                  `json:"total"`
}

// Close drains the remediation queue and closes the store if New opened
// it.
func (a *App) Close() error {
	a.Queue.Close()
	if a.ownsStore {
		return a.Store.Close()
	}
	return nil
}
