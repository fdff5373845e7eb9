package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/studycast/internal/docpipe"
	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db.ChunkRepo(), llm.NewHashEmbedder(0), Config{
		Chunking: docpipe.Options{MaxTokens: 500, OverlapTokens: 50},
	})
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Ingest(ctx, "go.txt", writeDoc(t, "go.txt", "channels connect goroutines"), "txt")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.False(t, res.Duplicate)

	_, err = s.Ingest(ctx, "db.md", writeDoc(t, "db.md", "sqlite stores rows in pages"), "md")
	require.NoError(t, err)

	matches, err := s.Query(ctx, "how do channels connect goroutines", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "go.txt", matches[0].Source)
	assert.Equal(t, "channels connect goroutines", matches[0].Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	top, err := s.Query(ctx, "sqlite pages", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "db.md", top[0].Source)
}

func TestIngestIsIdempotentPerContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	path := writeDoc(t, "a.txt", "the same bytes twice")
	_, err := s.Ingest(ctx, "a.txt", path, "txt")
	require.NoError(t, err)

	res, err := s.Ingest(ctx, "renamed.txt", path, "txt")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Zero(t, res.Chunks)

	snap, err := s.Snapshot(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, snap, 1)
}

func TestIngestUnsupportedFormat(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Ingest(context.Background(), "x.xlsx", writeDoc(t, "x.xlsx", "cells"), "xlsx")
	assert.True(t, errors.Is(err, docpipe.ErrUnsupportedFormat), "got %v", err)
}

func TestIngestEmptyDocument(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Ingest(context.Background(), "blank.txt", writeDoc(t, "blank.txt", "   \n"), "txt")
	assert.Error(t, err)
}

func TestQueryEmptyCorpus(t *testing.T) {
	s := newTestStore(t)
	matches, err := s.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Snapshot(ctx, 10)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		_, err := s.Ingest(ctx, name, writeDoc(t, name, "content of "+name), "txt")
		require.NoError(t, err)
	}

	snap, err := s.Snapshot(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, "one.txt", snap[0].Source)
	assert.Equal(t, "two.txt", snap[1].Source)
	assert.Len(t, snap[0].Embedding, llm.HashEmbedderDim)

	ups, err := s.Uploads(ctx)
	require.NoError(t, err)
	assert.Len(t, ups, 3)
}
