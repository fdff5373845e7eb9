// Package corpus holds the embedded document chunks that every later
// pipeline stage reads from.
package corpus

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/abhisek/studycast/internal/docpipe"
	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/metrics"
	"github.com/abhisek/studycast/internal/store"
)

// ErrEmptyCorpus is returned by Snapshot when nothing has been ingested.
var ErrEmptyCorpus = errors.New("corpus is empty")

// Chunk is one embedded passage of an ingested document.
type Chunk struct {
	Text      string
	Source    string
	Embedding []float32
}

// Match is a chunk scored against a query.
type Match struct {
	Text   string
	Source string
	Score  float64
}

// IngestResult reports what Ingest did with a file.
type IngestResult struct {
	Hash   string
	Chunks int
	// Duplicate is true when identical bytes were ingested before and
	// nothing was added.
	Duplicate bool
}

// Config configures a Store.
type Config struct {
	Chunking docpipe.Options
	Logger   *slog.Logger
}

// Store indexes documents and answers similarity queries.
type Store struct {
	repo     store.ChunkRepo
	embedder llm.Embedder
	chunking docpipe.Options
	logger   *slog.Logger
}

// New creates a Store over repo, embedding with embedder.
func New(repo store.ChunkRepo, embedder llm.Embedder, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:     repo,
		embedder: embedder,
		chunking: cfg.Chunking,
		logger:   logger,
	}
}

// Ingest extracts, chunks and embeds the file at path and adds its chunks
// to the corpus under the source tag filename. Re-ingesting identical bytes
// is a no-op.
func (s *Store) Ingest(ctx context.Context, filename, path, ext string) (IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IngestResult{}, fmt.Errorf("read upload: %w", err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	seen, err := s.repo.HasUpload(ctx, hash)
	if err != nil {
		return IngestResult{}, err
	}
	if seen {
		s.logger.Info("upload already ingested", "file", filename, "hash", hash[:12])
		return IngestResult{Hash: hash, Duplicate: true}, nil
	}

	doc, err := docpipe.Extract(path, ext)
	if err != nil {
		return IngestResult{}, err
	}
	pieces := docpipe.Split(doc.Text, s.chunking)
	if len(pieces) == 0 {
		return IngestResult{}, fmt.Errorf("%s: no text content", filename)
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return IngestResult{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return IngestResult{}, fmt.Errorf("embed chunks: got %d vectors for %d texts", len(vectors), len(texts))
	}

	rows := make([]store.Chunk, len(pieces))
	for i, p := range pieces {
		rows[i] = store.Chunk{
			Source:    filename,
			Position:  p.Index,
			Text:      p.Text,
			Embedding: vectors[i],
			Model:     s.embedder.Model(),
		}
	}
	if err := s.repo.InsertUpload(ctx, store.Upload{Hash: hash, Source: filename}, rows); err != nil {
		return IngestResult{}, err
	}

	metrics.Get().ChunksIngested.Add(float64(len(rows)))
	s.logger.Info("document ingested", "file", filename, "format", doc.Format, "chunks", len(rows))
	return IngestResult{Hash: hash, Chunks: len(rows)}, nil
}

// Query returns up to k chunks ranked by cosine similarity to text, best
// first. An empty corpus yields no matches and no error.
func (s *Store) Query(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	chunks, err := s.repo.Chunks(ctx, s.embedder.Model())
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	query := vecs[0]
	queryNorm := norm(query)

	matches := make([]Match, 0, len(chunks))
	for _, c := range chunks {
		matches = append(matches, Match{
			Text:   c.Text,
			Source: c.Source,
			Score:  cosine(query, c.Embedding, queryNorm, norm(c.Embedding)),
		})
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return matches[:min(k, len(matches))], nil
}

// Snapshot returns up to limit chunks in ingestion order. A limit of zero
// or less returns every chunk.
func (s *Store) Snapshot(ctx context.Context, limit int) ([]Chunk, error) {
	rows, err := s.repo.Chunks(ctx, s.embedder.Model())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyCorpus
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]Chunk, len(rows))
	for i, r := range rows {
		out[i] = Chunk{Text: r.Text, Source: r.Source, Embedding: r.Embedding}
	}
	return out, nil
}

// Uploads lists ingested documents, newest first.
func (s *Store) Uploads(ctx context.Context) ([]store.Upload, error) {
	return s.repo.Uploads(ctx)
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if len(a) != len(b) || normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
