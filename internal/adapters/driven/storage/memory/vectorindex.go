package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Chunks are kept in insertion order; contents are lost when the process exits.
type VectorIndex struct {
	mu      sync.RWMutex
	records map[string]domain.DocumentRecord
	chunks  []domain.Chunk
	keys    map[chunkKey]struct{}

	// owners lists which document each chunk came from, in insertion order.
	owners    []chunkOwner
	ownerKeys map[ownerKey]struct{}
}

type chunkKey struct {
	fingerprint string
	session     string
}

type ownerKey struct {
	chunk            chunkKey
	filename, source string
}

type chunkOwner struct {
	key        ownerKey
	documentID string
	sourceType string
	createdAt  time.Time
}

// NewVectorIndex creates a new in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		records:   make(map[string]domain.DocumentRecord),
		keys:      make(map[chunkKey]struct{}),
		ownerKeys: make(map[ownerKey]struct{}),
	}
}

// Insert stores the record and any chunks not already present for its session.
// Chunks already present gain the record as another owner.
func (v *VectorIndex) Insert(_ context.Context, record domain.DocumentRecord, chunks []domain.Chunk) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.records[record.ID]; exists {
		return 0, domain.ErrInvalidInput
	}
	return v.insert(record, chunks), nil
}

// Replace swaps the permanent records from source for record under one lock.
func (v *VectorIndex) Replace(
	_ context.Context, source string, record domain.DocumentRecord, chunks []domain.Chunk,
) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.records[record.ID]; exists {
		return 0, domain.ErrInvalidInput
	}
	v.release(func(tag, src string) bool { return tag == "" && src == source })
	inserted := v.insert(record, chunks)
	v.prune()
	return inserted, nil
}

// insert must be called with the write lock held.
func (v *VectorIndex) insert(record domain.DocumentRecord, chunks []domain.Chunk) int {
	inserted, owned := 0, 0
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = record.IngestedAt
		}

		key := chunkKey{fingerprint: c.ID, session: record.SessionTag}
		owner := ownerKey{chunk: key, filename: record.Filename, source: record.Source}
		if _, dup := v.ownerKeys[owner]; !dup {
			v.ownerKeys[owner] = struct{}{}
			v.owners = append(v.owners, chunkOwner{
				key:        owner,
				documentID: record.ID,
				sourceType: record.SourceType,
				createdAt:  c.CreatedAt,
			})
			owned++
		}

		if _, dup := v.keys[key]; dup {
			continue
		}
		v.keys[key] = struct{}{}

		c.DocumentID = record.ID
		c.Filename = record.Filename
		c.Source = record.Source
		c.SourceType = record.SourceType
		c.SessionTag = record.SessionTag
		c.Embedding = append([]float32(nil), c.Embedding...)
		v.chunks = append(v.chunks, c)
		inserted++
	}

	if owned > 0 {
		v.records[record.ID] = record
	}
	return inserted
}

// Search ranks the chunks in scope by cosine similarity.
func (v *VectorIndex) Search(
	_ context.Context, query []float32, k int, scope domain.Scope,
) ([]domain.RetrievalResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	candidates := make([]domain.Chunk, 0, len(v.chunks))
	for _, c := range v.chunks {
		if scope.Matches(c.SessionTag) {
			candidates = append(candidates, c)
		}
	}
	return domain.RankTopK(query, candidates, k), nil
}

// Delete removes chunks and records matching scope.
func (v *VectorIndex) Delete(_ context.Context, scope domain.Scope) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.release(func(tag, _ string) bool { return scope.Matches(tag) })
	return v.prune(), nil
}

// DeleteSource removes permanent records originating from source, and the
// chunks no other document owns.
func (v *VectorIndex) DeleteSource(_ context.Context, source string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.release(func(tag, src string) bool { return tag == "" && src == source })
	return v.prune(), nil
}

// release drops the owners and records that match. Must be called with the write lock held.
func (v *VectorIndex) release(match func(tag, source string) bool) {
	kept := v.owners[:0]
	for _, o := range v.owners {
		if match(o.key.chunk.session, o.key.source) {
			delete(v.ownerKeys, o.key)
			continue
		}
		kept = append(kept, o)
	}
	v.owners = kept

	for id, r := range v.records {
		if match(r.SessionTag, r.Source) {
			delete(v.records, id)
		}
	}
}

// prune deletes chunks without an owner and hands chunks whose document was
// released to their oldest remaining owner. Must be called with the write lock held.
func (v *VectorIndex) prune() int {
	type docKey struct {
		chunk chunkKey
		id    string
	}
	first := make(map[chunkKey]chunkOwner, len(v.owners))
	owns := make(map[docKey]struct{}, len(v.owners))
	for _, o := range v.owners {
		if _, ok := first[o.key.chunk]; !ok {
			first[o.key.chunk] = o
		}
		owns[docKey{o.key.chunk, o.documentID}] = struct{}{}
	}

	kept := v.chunks[:0]
	deleted := 0
	for _, c := range v.chunks {
		key := chunkKey{fingerprint: c.ID, session: c.SessionTag}
		o, ok := first[key]
		if !ok {
			delete(v.keys, key)
			deleted++
			continue
		}
		if _, still := owns[docKey{key, c.DocumentID}]; !still {
			c.DocumentID = o.documentID
			c.Filename = o.key.filename
			c.Source = o.key.source
			c.SourceType = o.sourceType
		}
		kept = append(kept, c)
	}
	clear(v.chunks[len(kept):])
	v.chunks = kept
	return deleted
}

// ListDocuments groups chunk owners by filename, source and session in first-seen order.
func (v *VectorIndex) ListDocuments(_ context.Context) ([]domain.DocumentGroup, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	type groupKey struct{ filename, source, session string }
	index := make(map[groupKey]int)
	groups := []domain.DocumentGroup{}
	for _, o := range v.owners {
		key := groupKey{o.key.filename, o.key.source, o.key.chunk.session}
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, domain.DocumentGroup{
				Filename:   o.key.filename,
				Source:     o.key.source,
				SourceType: o.sourceType,
				SessionTag: o.key.chunk.session,
				UploadedAt: o.createdAt,
			})
			i = len(groups) - 1
		}
		groups[i].ChunkCount++
		if o.createdAt.Before(groups[i].UploadedAt) {
			groups[i].UploadedAt = o.createdAt
		}
	}
	return groups, nil
}

// Count returns the number of chunks in scope.
func (v *VectorIndex) Count(_ context.Context, scope domain.Scope) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n := 0
	for _, c := range v.chunks {
		if scope.Matches(c.SessionTag) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the memory index.
func (v *VectorIndex) Close() error {
	return nil
}
