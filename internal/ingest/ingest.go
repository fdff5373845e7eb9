// Package ingest runs the upload workflow: index the document, then
// re-derive the skill tree and assessment from the whole corpus.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/abhisek/studycast/internal/assessment"
	"github.com/abhisek/studycast/internal/corpus"
	"github.com/abhisek/studycast/internal/docpipe"
	"github.com/abhisek/studycast/internal/docstore"
	"github.com/abhisek/studycast/internal/skilltree"
)

// DefaultSnapshotLimit caps the chunks handed to skill-tree synthesis.
const DefaultSnapshotLimit = 200

// Corpus is the subset of corpus.Store the coordinator needs.
type Corpus interface {
	Ingest(ctx context.Context, filename, path, ext string) (corpus.IngestResult, error)
	Snapshot(ctx context.Context, limit int) ([]corpus.Chunk, error)
}

// TreeSynthesizer builds a skill tree from corpus chunks.
type TreeSynthesizer interface {
	Synthesize(ctx context.Context, chunks []corpus.Chunk) (*skilltree.Tree, error)
}

// AssessmentSynthesizer builds an assessment from a skill tree.
type AssessmentSynthesizer interface {
	Synthesize(ctx context.Context, tree *skilltree.Tree) (*assessment.Assessment, error)
}

// Config configures a Coordinator.
type Config struct {
	// UploadDir holds uploads while they are being indexed.
	UploadDir     string
	SnapshotLimit int
	Logger        *slog.Logger
}

// Result summarizes a completed upload.
type Result struct {
	Message       string `json:"message"`
	SkillCount    int    `json:"skill_count"`
	QuestionCount int    `json:"question_count"`
	Chunks        int    `json:"chunks"`
	Duplicate     bool   `json:"duplicate,omitempty"`
}

// Coordinator owns the upload workflow. Runs are serialized so two uploads
// never interleave their writes of the skill tree and assessment.
type Coordinator struct {
	corpus    Corpus
	trees     TreeSynthesizer
	questions AssessmentSynthesizer
	docs      *docstore.Store
	uploadDir string
	snapshot  int
	logger    *slog.Logger
	mu        sync.Mutex
}

// New creates a Coordinator.
func New(c Corpus, trees TreeSynthesizer, questions AssessmentSynthesizer, docs *docstore.Store, cfg Config) (*Coordinator, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if cfg.SnapshotLimit <= 0 {
		cfg.SnapshotLimit = DefaultSnapshotLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		corpus:    c,
		trees:     trees,
		questions: questions,
		docs:      docs,
		uploadDir: cfg.UploadDir,
		snapshot:  cfg.SnapshotLimit,
		logger:    logger,
	}, nil
}

// Ingest stores the upload r under filename, indexes it and regenerates
// the skill tree and assessment. Nothing is persisted unless both were
// synthesized, so a failure leaves the previous documents untouched.
func (c *Coordinator) Ingest(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: missing file name", docpipe.ErrUnsupportedFormat)
	}
	ext := filepath.Ext(base)
	if _, err := docpipe.DetectFormat(ext); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path, err := c.save(base, r)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to remove upload", "path", path, "err", err)
		}
	}()

	ingested, err := c.corpus.Ingest(ctx, base, path, ext)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", base, err)
	}

	chunks, err := c.corpus.Snapshot(ctx, c.snapshot)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	tree, err := c.trees.Synthesize(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("synthesize skill tree: %w", err)
	}

	quiz, err := c.questions.Synthesize(ctx, tree)
	if err != nil {
		return nil, fmt.Errorf("synthesize assessment: %w", err)
	}

	if err := c.persist(tree, quiz); err != nil {
		return nil, err
	}

	res := &Result{
		Message:       fmt.Sprintf("%s uploaded and indexed", base),
		SkillCount:    len(tree.Leaves()),
		QuestionCount: len(quiz.Questions),
		Chunks:        ingested.Chunks,
		Duplicate:     ingested.Duplicate,
	}
	if ingested.Duplicate {
		res.Message = fmt.Sprintf("%s was already indexed", base)
	}
	c.logger.Info("upload processed",
		"file", base,
		"chunks", ingested.Chunks,
		"skills", res.SkillCount,
		"questions", res.QuestionCount)
	return res, nil
}

// persist writes the tree, then the assessment. When the assessment
// cannot be written the previous tree is put back so the two documents
// stay in step.
func (c *Coordinator) persist(tree *skilltree.Tree, quiz *assessment.Assessment) error {
	prev, hadTree, err := c.docs.Raw(skilltree.DocKey)
	if err != nil {
		return err
	}
	if err := skilltree.Save(c.docs, tree); err != nil {
		return err
	}
	if err := assessment.Save(c.docs, quiz); err != nil {
		if rerr := c.docs.Restore(skilltree.DocKey, prev, hadTree); rerr != nil {
			c.logger.Error("failed to restore previous skill tree", "err", rerr)
		}
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

func (c *Coordinator) save(base string, r io.Reader) (string, error) {
	path := filepath.Join(c.uploadDir, uuid.NewString()+"_"+base)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}
