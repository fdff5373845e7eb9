package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder turns texts into vectors for semantic search.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding space. Vectors from different models
	// are not comparable.
	Model() string
}

// OpenAIEmbedder implements Embedder with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	batchSize int
}

// NewOpenAIEmbedder creates an embedder for the OpenAI embeddings API.
func NewOpenAIEmbedder(cfg EmbeddingConfig) *OpenAIEmbedder {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 64
	}
	return &OpenAIEmbedder{
		client:    newOpenAIClient(cfg.APIKey, cfg.BaseURL),
		model:     cfg.Model,
		batchSize: batch,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", start, end, mapOpenAIError(err))
		}
		for _, d := range resp.Data {
			idx := start + d.Index
			if d.Index < 0 || idx >= end {
				return nil, &ErrInvalidResponse{Err: fmt.Errorf("embedding index %d out of range", d.Index)}
			}
			out[idx] = d.Embedding
		}
	}

	for i, v := range out {
		if v == nil {
			return nil, &ErrInvalidResponse{Err: fmt.Errorf("missing embedding for input %d", i)}
		}
	}
	return out, nil
}

func (e *OpenAIEmbedder) Model() string { return e.model }

// HashEmbedderDim is the vector width of the local hashing embedder.
const HashEmbedderDim = 256

// HashEmbedder is a deterministic bag-of-words embedder: each lowercased
// token is hashed into a bucket and the vector is L2-normalised. Texts that
// share vocabulary score higher under cosine similarity.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hashing embedder with dim buckets.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = HashEmbedderDim
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashEmbedder) Model() string { return fmt.Sprintf("hash-%d", h.dim) }

func (h *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		f.Write([]byte(w))
		vec[f.Sum32()%uint32(h.dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
