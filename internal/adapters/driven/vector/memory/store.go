// Package memory provides an in-memory vector store. It backs tests
// and the fallback path when no Chroma server is reachable. Contents
// live for the process lifetime only.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// record is one stored embedding with its payload.
type record struct {
	id       string
	document string
	metadata domain.ChunkMetadata
	vector   []float32
}

// collection groups records under one distance space.
type collection struct {
	name    string
	space   driven.DistanceSpace
	records map[string]record
	order   []string
}

// VectorStore keeps collections in process memory behind a mutex.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	byName      map[string]string
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]*collection),
		byName:      make(map[string]string),
	}
}

// GetOrCreateCollection resolves a collection id by name, creating it
// on first use. Repeated calls with the same name return the same id.
func (s *VectorStore) GetOrCreateCollection(_ context.Context, name string, space driven.DistanceSpace) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[name]; ok {
		return id, nil
	}
	id := uuid.NewString()
	s.collections[id] = &collection{
		name:    name,
		space:   space,
		records: make(map[string]record),
	}
	s.byName[name] = id
	return id, nil
}

// Add writes a batch of records. A record with an already-known id
// silently overwrites the previous one, matching server behaviour.
func (s *VectorStore) Add(_ context.Context, collectionID string, batch driven.EmbeddingBatch) error {
	if len(batch.IDs) == 0 {
		return nil
	}
	if len(batch.Documents) != len(batch.IDs) ||
		len(batch.Metadatas) != len(batch.IDs) ||
		len(batch.Embeddings) != len(batch.IDs) {
		return fmt.Errorf("batch field lengths differ: %d ids, %d documents, %d metadatas, %d embeddings",
			len(batch.IDs), len(batch.Documents), len(batch.Metadatas), len(batch.Embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collectionID]
	if !ok {
		return fmt.Errorf("collection %s not found", collectionID)
	}
	for i, id := range batch.IDs {
		if _, exists := coll.records[id]; !exists {
			coll.order = append(coll.order, id)
		}
		coll.records[id] = record{
			id:       id,
			document: batch.Documents[i],
			metadata: batch.Metadatas[i],
			vector:   batch.Embeddings[i],
		}
	}
	return nil
}

// Query returns the topK nearest records by cosine distance, closest
// first. Ties keep insertion order.
func (s *VectorStore) Query(_ context.Context, collectionID string, vector []float32, topK int) ([]driven.QueryHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collectionID]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collectionID)
	}

	hits := make([]driven.QueryHit, 0, len(coll.order))
	for _, id := range coll.order {
		r := coll.records[id]
		hits = append(hits, driven.QueryHit{
			ID:       r.id,
			Document: r.document,
			Metadata: r.metadata,
			Distance: cosineDistance(vector, r.vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Close drops all collections.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*collection)
	s.byName = make(map[string]string)
	return nil
}

// cosineDistance is 1 minus the cosine similarity, so lower means
// more similar. Mismatched or zero vectors count as maximally far.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
