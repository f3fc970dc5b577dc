package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Insert stores the record and its chunks in one transaction.
// Chunks whose (fingerprint, session) already exist are not stored again, but the
// record is added as one more owner of them. When the record owns nothing new it
// is not kept, so re-ingesting a file leaves the index unchanged.
func (v *vectorIndex) Insert(ctx context.Context, record domain.DocumentRecord, chunks []domain.Chunk) (int, error) {
	var inserted int
	err := v.store.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		inserted, err = insertTx(ctx, tx, record, chunks)
		return err
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Replace drops the ownership rows of source, inserts the new record and then
// removes whatever is left without an owner, all in one transaction.
func (v *vectorIndex) Replace(
	ctx context.Context, source string, record domain.DocumentRecord, chunks []domain.Chunk,
) (int, error) {
	var inserted int
	err := v.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chunk_sources WHERE session_tag = '' AND source = ?", source); err != nil {
			return fmt.Errorf("releasing chunks of %s: %w", source, err)
		}
		var err error
		if inserted, err = insertTx(ctx, tx, record, chunks); err != nil {
			return err
		}
		if _, err := reconcileTx(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM documents WHERE session_tag = '' AND source = ? AND id != ?", source, record.ID); err != nil {
			return fmt.Errorf("deleting documents: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func insertTx(ctx context.Context, tx *sql.Tx, record domain.DocumentRecord, chunks []domain.Chunk) (int, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, source, source_type, size, owner, session_tag, total_pages, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.Filename, record.Source, record.SourceType, record.Size,
		record.Owner, record.SessionTag, record.TotalPages, record.IngestedAt.UTC()); err != nil {
		return 0, fmt.Errorf("saving document: %w", err)
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO chunks (fingerprint, session_tag, document_id, content, filename, source,
			source_type, position, estimated_page, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer chunkStmt.Close()

	ownerStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO chunk_sources (fingerprint, session_tag, document_id, filename, source,
			source_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer ownerStmt.Close()

	inserted, owned := 0, 0
	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = record.IngestedAt
		}

		n, err := execCount(ctx, chunkStmt, chunk.ID, record.SessionTag, record.ID, chunk.Content,
			record.Filename, record.Source, record.SourceType, chunk.Position, chunk.EstimatedPage,
			encodeVector(chunk.Embedding), string(metadataJSON), createdAt.UnixNano())
		if err != nil {
			return 0, fmt.Errorf("saving chunk: %w", err)
		}
		inserted += n

		n, err = execCount(ctx, ownerStmt, chunk.ID, record.SessionTag, record.ID,
			record.Filename, record.Source, record.SourceType, createdAt.UnixNano())
		if err != nil {
			return 0, fmt.Errorf("saving chunk owner: %w", err)
		}
		owned += n
	}

	if owned == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", record.ID); err != nil {
			return 0, fmt.Errorf("discarding duplicate document: %w", err)
		}
	}
	return inserted, nil
}

func execCount(ctx context.Context, stmt *sql.Stmt, args ...any) (int, error) {
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// reconcileTx moves chunks whose document no longer owns them to their oldest
// remaining owner, then deletes the chunks nobody owns. Returns the number deleted.
func reconcileTx(ctx context.Context, tx *sql.Tx) (int, error) {
	if _, err := tx.ExecContext(ctx, `
		UPDATE chunks SET (document_id, filename, source, source_type) = (
			SELECT o.document_id, o.filename, o.source, o.source_type FROM chunk_sources o
			WHERE o.fingerprint = chunks.fingerprint AND o.session_tag = chunks.session_tag
			ORDER BY o.seq LIMIT 1
		)
		WHERE EXISTS (
			SELECT 1 FROM chunk_sources o
			WHERE o.fingerprint = chunks.fingerprint AND o.session_tag = chunks.session_tag
		) AND NOT EXISTS (
			SELECT 1 FROM chunk_sources o
			WHERE o.fingerprint = chunks.fingerprint AND o.session_tag = chunks.session_tag
				AND o.document_id = chunks.document_id
		)
	`); err != nil {
		return 0, fmt.Errorf("reassigning shared chunks: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM chunks WHERE NOT EXISTS (
			SELECT 1 FROM chunk_sources o
			WHERE o.fingerprint = chunks.fingerprint AND o.session_tag = chunks.session_tag
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted chunks: %w", err)
	}
	return int(deleted), nil
}

// Search loads the chunks in scope in insertion order and ranks them by cosine similarity.
func (v *vectorIndex) Search(
	ctx context.Context, query []float32, k int, scope domain.Scope,
) ([]domain.RetrievalResult, error) {
	if scope.IsEmpty() || k <= 0 {
		return []domain.RetrievalResult{}, nil
	}

	where, args := scopeClause(scope)
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT fingerprint, session_tag, document_id, content, filename, source, source_type,
			position, estimated_page, embedding, metadata, created_at
		FROM chunks WHERE `+where+`
		ORDER BY seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return domain.RankTopK(query, candidates, k), nil
}

// Delete removes matching chunks, owners and document records together.
// Every owner of a chunk shares its session, so nothing outside scope is touched.
func (v *vectorIndex) Delete(ctx context.Context, scope domain.Scope) (int, error) {
	if scope.IsEmpty() {
		return 0, nil
	}
	where, args := scopeClause(scope)

	var deleted int64
	err := v.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_sources WHERE "+where, args...); err != nil {
			return fmt.Errorf("deleting chunk owners: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE "+where, args...)
		if err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		if deleted, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("counting deleted chunks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE "+where, args...); err != nil {
			return fmt.Errorf("deleting documents: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// DeleteSource releases the permanent chunks owned by source. Chunks that another
// document also owns stay, reassigned to that document.
func (v *vectorIndex) DeleteSource(ctx context.Context, source string) (int, error) {
	var deleted int
	err := v.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chunk_sources WHERE session_tag = '' AND source = ?", source); err != nil {
			return fmt.Errorf("releasing chunks of %s: %w", source, err)
		}
		var err error
		if deleted, err = reconcileTx(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM documents WHERE session_tag = '' AND source = ?", source); err != nil {
			return fmt.Errorf("deleting documents: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// ListDocuments groups chunk owners by filename, source and session, oldest group first.
func (v *vectorIndex) ListDocuments(ctx context.Context) ([]domain.DocumentGroup, error) {
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT filename, source, MAX(source_type), session_tag, COUNT(*), MIN(created_at)
		FROM chunk_sources
		GROUP BY filename, source, session_tag
		ORDER BY MIN(seq)
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	groups := []domain.DocumentGroup{}
	for rows.Next() {
		var g domain.DocumentGroup
		var uploaded int64
		if err := rows.Scan(&g.Filename, &g.Source, &g.SourceType, &g.SessionTag, &g.ChunkCount, &uploaded); err != nil {
			return nil, fmt.Errorf("scanning document group: %w", err)
		}
		g.UploadedAt = time.Unix(0, uploaded).UTC()
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document groups: %w", err)
	}
	return groups, nil
}

// Count returns the number of chunks in scope.
func (v *vectorIndex) Count(ctx context.Context, scope domain.Scope) (int, error) {
	if scope.IsEmpty() {
		return 0, nil
	}
	where, args := scopeClause(scope)
	var n int
	if err := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the connection.
func (v *vectorIndex) Close() error {
	return nil
}

// scopeClause translates a scope into a WHERE fragment over the session_tag column.
func scopeClause(scope domain.Scope) (string, []any) {
	switch scope.Kind {
	case domain.ScopeAll:
		return "1 = 1", nil
	case domain.ScopePermanent:
		return "session_tag = ''", nil
	case domain.ScopeSession:
		return "session_tag = ? AND session_tag != ''", []any{scope.SessionTag}
	default:
		return "1 = 0", nil
	}
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var metadataJSON sql.NullString
	var createdAt int64

	if err := rows.Scan(&chunk.ID, &chunk.SessionTag, &chunk.DocumentID, &chunk.Content,
		&chunk.Filename, &chunk.Source, &chunk.SourceType, &chunk.Position, &chunk.EstimatedPage,
		&embeddingBlob, &metadataJSON, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	embedding, err := decodeVector(embeddingBlob)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
	}
	chunk.Embedding = embedding
	chunk.CreatedAt = time.Unix(0, createdAt).UTC()

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}
