package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	// Create a temporary directory for the test database
	tempDir, err := os.MkdirTemp("", "docsearch-test-*")
	require.NoError(t, err)

	// Create store in temp directory
	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	// Return cleanup function
	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// testRecord builds a document record for the given file and session.
func testRecord(id, filename, session string) domain.DocumentRecord {
	return domain.DocumentRecord{
		ID:         id,
		Filename:   filename,
		Source:     "upload",
		SourceType: domain.FileType(filename),
		Size:       42,
		SessionTag: session,
		TotalPages: 1,
		IngestedAt: time.Now().UTC(),
	}
}

// testChunks builds n chunks with distinct text and the given embedding.
func testChunks(prefix string, n int, embedding []float32) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:            fmt.Sprintf("%s-fp-%d", prefix, i),
			Content:       fmt.Sprintf("%s chunk %d", prefix, i),
			Position:      i,
			EstimatedPage: 1,
			Embedding:     embedding,
			Metadata:      map[string]any{"offset": i * 10},
		}
	}
	return chunks
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, "index.db", filepath.Base(store.Path()))
	_, err := os.Stat(store.Path())
	require.NoError(t, err)

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	_, err = store.VectorIndex().Insert(context.Background(),
		testRecord("doc-1", "a.txt", ""), testChunks("a", 2, []float32{1, 0}))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(tempDir)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.VectorIndex().Count(context.Background(), domain.AllDocuments())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	version, err := reopened.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

// ==================== Vector Index Tests ====================

func TestVectorIndex_Insert_Idempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	inserted, err := idx.Insert(ctx, testRecord("doc-1", "doc.txt", "s1"), testChunks("doc", 3, []float32{1, 0}))
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	inserted, err = idx.Insert(ctx, testRecord("doc-2", "doc.txt", "s1"), testChunks("doc", 3, []float32{1, 0}))
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	n, err := idx.Count(ctx, domain.AllDocuments())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	groups, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].ChunkCount)
}

func TestVectorIndex_Insert_SameTextDifferentSessions(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, testRecord("doc-1", "doc.txt", "s1"), testChunks("doc", 2, []float32{1, 0}))
	require.NoError(t, err)
	inserted, err := idx.Insert(ctx, testRecord("doc-2", "doc.txt", "s2"), testChunks("doc", 2, []float32{1, 0}))
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	n, err := idx.Count(ctx, domain.SessionDocuments("s2"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestVectorIndex_Insert_RollsBackOnFailure(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, testRecord("doc-1", "a.txt", ""), testChunks("a", 1, []float32{1}))
	require.NoError(t, err)

	// Reusing the record ID violates the primary key after no chunks were written
	_, err = idx.Insert(ctx, testRecord("doc-1", "b.txt", ""), testChunks("b", 2, []float32{1}))
	require.Error(t, err)

	n, err := idx.Count(ctx, domain.AllDocuments())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVectorIndex_Search_RanksAndLimits(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	chunks := []domain.Chunk{
		{ID: "fp-far", Content: "far", Embedding: []float32{0, 1}},
		{ID: "fp-near", Content: "near", Embedding: []float32{1, 0.05}},
		{ID: "fp-mid", Content: "mid", Embedding: []float32{1, 1}},
	}
	_, err := idx.Insert(ctx, testRecord("doc-1", "a.txt", ""), chunks)
	require.NoError(t, err)

	results, err := idx.Search(ctx, []float32{1, 0}, 2, domain.AllDocuments())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Chunk.Content)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "mid", results[1].Chunk.Content)
	assert.Greater(t, results[0].Score, results[1].Score)

	hit := results[0].Chunk
	assert.Equal(t, "a.txt", hit.Filename)
	assert.Equal(t, "upload", hit.Source)
	assert.Equal(t, "txt", hit.SourceType)
	assert.Equal(t, "doc-1", hit.DocumentID)
	assert.Equal(t, []float32{1, 0.05}, hit.Embedding)
}

func TestVectorIndex_Search_TiesInInsertionOrder(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, testRecord("doc-1", "a.txt", ""), testChunks("a", 2, []float32{1, 0}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord("doc-2", "b.txt", ""), testChunks("b", 2, []float32{2, 0}))
	require.NoError(t, err)

	results, err := idx.Search(ctx, []float32{1, 0}, 4, domain.AllDocuments())
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "a chunk 0", results[0].Chunk.Content)
	assert.Equal(t, "a chunk 1", results[1].Chunk.Content)
	assert.Equal(t, "b chunk 0", results[2].Chunk.Content)
	assert.Equal(t, "b chunk 1", results[3].Chunk.Content)
}

func TestVectorIndex_Search_SessionIsolation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, testRecord("doc-a", "a.txt", "A"), testChunks("a", 3, []float32{1, 0}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord("doc-b", "b.txt", "B"), testChunks("b", 3, []float32{1, 0}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord("doc-p", "p.txt", ""), testChunks("p", 3, []float32{1, 0}))
	require.NoError(t, err)

	results, err := idx.Search(ctx, []float32{1, 0}, 10, domain.SessionDocuments("A"))
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "A", r.Chunk.SessionTag)
	}

	results, err = idx.Search(ctx, []float32{1, 0}, 10, domain.PermanentDocuments())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Empty(t, r.Chunk.SessionTag)
	}
}

func TestVectorIndex_Search_EmptyIsNotError(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	results, err := idx.Search(ctx, []float32{1, 0}, 5, domain.AllDocuments())
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(ctx, []float32{1, 0}, 5, domain.SessionDocuments(""))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_Delete_Session(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, testRecord("doc-a", "a.txt", "s1"), testChunks("a", 2, []float32{1, 0}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord("doc-p", "p.txt", ""), testChunks("p", 3, []float32{1, 0}))
	require.NoError(t, err)

	deleted, err := idx.Delete(ctx, domain.SessionDocuments("s1"))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	results, err := idx.Search(ctx, []float32{1, 0}, 10, domain.SessionDocuments("s1"))
	require.NoError(t, err)
	assert.Empty(t, results)

	n, err := idx.Count(ctx, domain.PermanentDocuments())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var docs int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&docs))
	assert.Equal(t, 1, docs)
}

func TestVectorIndex_Delete_All(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, testRecord("doc-a", "a.txt", "s1"), testChunks("a", 2, []float32{1, 0}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord("doc-p", "p.txt", ""), testChunks("p", 3, []float32{1, 0}))
	require.NoError(t, err)

	deleted, err := idx.Delete(ctx, domain.AllDocuments())
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	groups, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	deleted, err = idx.Delete(ctx, domain.SessionDocuments(""))
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestVectorIndex_DeleteSource(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	rec := testRecord("doc-p", "p.txt", "")
	rec.Source = "/corpus/p.txt"
	_, err := idx.Insert(ctx, rec, testChunks("p", 2, []float32{1, 0}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord("doc-q", "q.txt", ""), testChunks("q", 1, []float32{1, 0}))
	require.NoError(t, err)

	deleted, err := idx.DeleteSource(ctx, "/corpus/p.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	n, err := idx.Count(ctx, domain.AllDocuments())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// permanentRecord builds a permanent-corpus record for a file on disk.
func permanentRecord(id, source string) domain.DocumentRecord {
	rec := testRecord(id, filepath.Base(source), "")
	rec.Source = source
	return rec
}

func TestVectorIndex_DeleteSource_KeepsSharedChunks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, permanentRecord("doc-a", "/src/a.txt"), testChunks("same", 2, []float32{1, 0}))
	require.NoError(t, err)
	inserted, err := idx.Insert(ctx, permanentRecord("doc-b", "/src/b.txt"), testChunks("same", 2, []float32{1, 0}))
	require.NoError(t, err)
	assert.Zero(t, inserted, "identical text is stored once")

	groups, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2, "both files are listed")
	assert.Equal(t, 2, groups[1].ChunkCount)

	deleted, err := idx.DeleteSource(ctx, "/src/a.txt")
	require.NoError(t, err)
	assert.Zero(t, deleted)

	n, err := idx.Count(ctx, domain.PermanentDocuments())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	groups, err = idx.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "/src/b.txt", groups[0].Source)
	assert.Equal(t, 2, groups[0].ChunkCount)

	results, err := idx.Search(ctx, []float32{1, 0}, 5, domain.PermanentDocuments())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "/src/b.txt", r.Chunk.Source)
		assert.Equal(t, "doc-b", r.Chunk.DocumentID)
	}

	deleted, err = idx.DeleteSource(ctx, "/src/b.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	n, err = idx.Count(ctx, domain.AllDocuments())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVectorIndex_DeleteSource_KeepsSessionCopies(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, permanentRecord("doc-p", "/src/p.txt"), testChunks("same", 1, []float32{1, 0}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord("doc-s", "p.txt", "s1"), testChunks("same", 1, []float32{1, 0}))
	require.NoError(t, err)

	_, err = idx.DeleteSource(ctx, "/src/p.txt")
	require.NoError(t, err)

	n, err := idx.Count(ctx, domain.SessionDocuments("s1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVectorIndex_Replace(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, permanentRecord("doc-1", "/src/a.txt"), testChunks("old", 3, []float32{1, 0}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, permanentRecord("doc-b", "/src/b.txt"), testChunks("old", 1, []float32{1, 0}))
	require.NoError(t, err)

	// The new version keeps the first old chunk and adds one.
	chunks := append(testChunks("old", 1, []float32{1, 0}), testChunks("new", 1, []float32{0, 1})...)
	inserted, err := idx.Replace(ctx, "/src/a.txt", permanentRecord("doc-2", "/src/a.txt"), chunks)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	n, err := idx.Count(ctx, domain.PermanentDocuments())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "old-fp-1 and old-fp-2 are gone")

	groups, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, g := range groups {
		counts[g.Source] = g.ChunkCount
	}
	assert.Equal(t, map[string]int{"/src/a.txt": 2, "/src/b.txt": 1}, counts)
}

func TestVectorIndex_Replace_FailureKeepsPrevious(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, permanentRecord("doc-1", "/src/a.txt"), testChunks("a", 2, []float32{1, 0}))
	require.NoError(t, err)

	// Reusing the record ID fails inside the transaction, after the release.
	_, err = idx.Replace(ctx, "/src/a.txt", permanentRecord("doc-1", "/src/a.txt"), testChunks("b", 1, []float32{1, 0}))
	require.Error(t, err)

	n, err := idx.Count(ctx, domain.PermanentDocuments())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	groups, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].ChunkCount)
}

func TestVectorIndex_ListDocuments_Groups(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, testRecord("doc-a", "A.txt", "s1"), testChunks("a", 2, []float32{1, 0}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord("doc-b", "B.pdf", ""), testChunks("b", 3, []float32{1, 0}))
	require.NoError(t, err)

	groups, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "A.txt", groups[0].Filename)
	assert.Equal(t, 2, groups[0].ChunkCount)
	assert.Equal(t, "s1", groups[0].Label())

	assert.Equal(t, "B.pdf", groups[1].Filename)
	assert.Equal(t, 3, groups[1].ChunkCount)
	assert.Equal(t, "permanent", groups[1].Label())
	assert.Equal(t, "pdf", groups[1].SourceType)
	assert.False(t, groups[1].UploadedAt.IsZero())
}

func TestVectorIndex_Count_Scopes(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	idx := store.VectorIndex()
	ctx := context.Background()

	_, err := idx.Insert(ctx, testRecord("doc-a", "a.txt", "s1"), testChunks("a", 2, []float32{1}))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord("doc-p", "p.txt", ""), testChunks("p", 3, []float32{1}))
	require.NoError(t, err)

	tests := []struct {
		scope domain.Scope
		want  int
	}{
		{domain.AllDocuments(), 5},
		{domain.PermanentDocuments(), 3},
		{domain.SessionDocuments("s1"), 2},
		{domain.SessionDocuments("s2"), 0},
		{domain.SessionDocuments(""), 0},
	}
	for _, tt := range tests {
		t.Run(tt.scope.Label(), func(t *testing.T) {
			n, err := idx.Count(ctx, tt.scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestVectorCodec(t *testing.T) {
	original := []float32{0, 1.5, -2.25, 3.125}
	decoded, err := decodeVector(encodeVector(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	assert.Nil(t, encodeVector(nil))
	decoded, err = decodeVector(nil)
	assert.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestStore_BindEmbeddingModel(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	model, err := store.EmbeddingModel(ctx)
	require.NoError(t, err)
	assert.Empty(t, model)

	require.NoError(t, store.BindEmbeddingModel(ctx, "hash-384"))
	require.NoError(t, store.BindEmbeddingModel(ctx, "hash-384"))

	t.Run("empty index rebinds", func(t *testing.T) {
		require.NoError(t, store.BindEmbeddingModel(ctx, "nomic-embed-text"))
		model, err := store.EmbeddingModel(ctx)
		require.NoError(t, err)
		assert.Equal(t, "nomic-embed-text", model)
	})

	t.Run("populated index refuses another model", func(t *testing.T) {
		_, err := store.VectorIndex().Insert(ctx, testRecord("doc-1", "a.txt", ""), testChunks("a", 2, []float32{1, 0}))
		require.NoError(t, err)

		err = store.BindEmbeddingModel(ctx, "text-embedding-3-small")

		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), `"nomic-embed-text"`)
		model, _ := store.EmbeddingModel(ctx)
		assert.Equal(t, "nomic-embed-text", model)
	})
}
