package store

import (
	"context"
	"database/sql"
	"fmt"
)

// chunkRepo implements ChunkRepo on the uploads and chunks tables.
type chunkRepo struct {
	db *sql.DB
}

func (r *chunkRepo) HasUpload(ctx context.Context, hash string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM uploads WHERE hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check upload: %w", err)
	}
	return n > 0, nil
}

func (r *chunkRepo) InsertUpload(ctx context.Context, up Upload, chunks []Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO uploads (hash, source, chunk_count) VALUES (?, ?, ?)`,
		up.Hash, up.Source, len(chunks),
	); err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks
		(upload_hash, source, position, text, embedding, model) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, up.Hash, c.Source, c.Position, c.Text,
			encodeVector(c.Embedding), c.Model); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *chunkRepo) Chunks(ctx context.Context, model string) ([]Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, source, position, text, embedding, model
		FROM chunks WHERE model = ? ORDER BY id`, model)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var (
			c    Chunk
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.Source, &c.Position, &c.Text, &blob, &c.Model); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Embedding = decodeVector(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *chunkRepo) Uploads(ctx context.Context) ([]Upload, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT hash, source, chunk_count, created_at FROM uploads ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.Hash, &u.Source, &u.ChunkCount, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *chunkRepo) Count(ctx context.Context, model string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE model = ?`, model).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
