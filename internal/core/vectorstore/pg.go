// Package vectorstore implements the shared chunk collection. The production
// store keeps vectors in Postgres via pgvector, in the same database as the
// relational rows; an in-memory store with identical filter semantics backs
// the tests.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/inferahq/infera/internal/core"
)

type PgStore struct {
	db       *sql.DB
	embedder core.EmbeddingProvider
}

func NewPgStore(db *sql.DB, embedder core.EmbeddingProvider) *PgStore {
	return &PgStore{db: db, embedder: embedder}
}

// Upsert embeds and writes chunks in a single transaction. Records missing
// the sourceId/userId/notebookId triple are rejected before anything is
// written.
func (s *PgStore) Upsert(ctx context.Context, chunks []core.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if err := validateRecord(&chunks[i]); err != nil {
			return err
		}
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vecs, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed: %v", core.ErrVectorIndexUnavailable, err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("%w: embed size mismatch: got %d want %d", core.ErrVectorIndexUnavailable, len(vecs), len(chunks))
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", core.ErrVectorIndexUnavailable, err)
	}

	const q = `
		INSERT INTO source_chunks
			(id, source_id, notebook_id, user_id, text, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: prepare: %v", core.ErrVectorIndexUnavailable, err)
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		id := ch.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			id, ch.SourceID, ch.NotebookID, ch.UserID, ch.Text, pgvector.NewVector(vecs[i]), meta,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: insert chunk: %v", core.ErrVectorIndexUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", core.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Search embeds the query and returns the top-k nearest chunks restricted to
// the filter conjunction.
func (s *PgStore) Search(ctx context.Context, query string, k int, f core.Filter) ([]core.ChunkRecord, error) {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil, fmt.Errorf("%w: embed query: %v", core.ErrVectorIndexUnavailable, err)
	}

	where, args := filterClauses(f, 2)
	q := fmt.Sprintf(`
		SELECT id, source_id, notebook_id, user_id, text, metadata
		FROM source_chunks
		%s
		ORDER BY embedding <=> $1
		LIMIT %d
	`, where, k)

	allArgs := append([]any{pgvector.NewVector(vecs[0])}, args...)
	rows, err := s.db.QueryContext(ctx, q, allArgs...)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", core.ErrVectorIndexUnavailable, err)
	}
	defer rows.Close()

	var out []core.ChunkRecord
	for rows.Next() {
		var (
			rec  core.ChunkRecord
			meta []byte
		)
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.NotebookID, &rec.UserID, &rec.Text, &meta); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", core.ErrVectorIndexUnavailable, err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &rec.Metadata)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrVectorIndexUnavailable, err)
	}
	return out, nil
}

// Delete removes every chunk matching the filter and returns only once the
// delete has been applied.
func (s *PgStore) Delete(ctx context.Context, f core.Filter) error {
	where, args := filterClauses(f, 1)
	if where == "" {
		return fmt.Errorf("refusing to delete with an empty filter")
	}
	q := "DELETE FROM source_chunks " + where
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("%w: delete: %v", core.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// filterClauses renders the filter as a WHERE conjunction with placeholders
// starting at argBase.
func filterClauses(f core.Filter, argBase int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	n := argBase
	if f.NotebookID != "" {
		clauses = append(clauses, fmt.Sprintf("notebook_id = $%d", n))
		args = append(args, f.NotebookID)
		n++
	}
	if f.UserID != "" {
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", n))
		args = append(args, f.UserID)
		n++
	}
	if len(f.SourceIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("source_id = ANY($%d::uuid[])", n))
		args = append(args, f.SourceIDs)
		n++
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func validateRecord(rec *core.ChunkRecord) error {
	if rec.SourceID == "" || rec.UserID == "" || rec.NotebookID == "" {
		return fmt.Errorf("chunk record missing required metadata (sourceId=%q userId=%q notebookId=%q)",
			rec.SourceID, rec.UserID, rec.NotebookID)
	}
	return nil
}

var _ core.VectorStore = (*PgStore)(nil)
