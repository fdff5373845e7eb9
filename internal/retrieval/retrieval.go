// Package retrieval adapts the corpus search to the shape the pipeline
// stages consume: ranked (text, source) passages that are never an error.
package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/abhisek/studycast/internal/corpus"
)

// NoContextMarker stands in for retrieved context when the search
// returns nothing.
const NoContextMarker = "No context found."

// Passage is a retrieved piece of source text.
type Passage struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Searcher is the semantic search the adapter wraps.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]corpus.Match, error)
}

// Adapter converts free-text queries into ranked passages.
type Adapter struct {
	searcher Searcher
	logger   *slog.Logger
}

// New creates an Adapter. A nil logger uses slog.Default.
func New(searcher Searcher, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{searcher: searcher, logger: logger}
}

// Retrieve returns up to k passages for query, best match first. Search
// failures are logged and reported as no passages.
func (a *Adapter) Retrieve(ctx context.Context, query string, k int) []Passage {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil
	}
	matches, err := a.searcher.Query(ctx, query, k)
	if err != nil {
		a.logger.Warn("retrieval failed", "query", query, "err", err)
		return nil
	}

	out := make([]Passage, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		out = append(out, Passage{Text: m.Text, Source: m.Source})
	}
	return out
}

// JoinContext joins passage texts with blank lines, or returns
// NoContextMarker when there are none.
func JoinContext(passages []Passage) string {
	if len(passages) == 0 {
		return NoContextMarker
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n\n")
}

// Sources returns the source tag of every passage, in order.
func Sources(passages []Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Source
	}
	return out
}
