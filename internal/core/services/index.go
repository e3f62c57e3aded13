package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
	"github.com/arclight-labs/casetrail/internal/core/ports/driving"
	"github.com/arclight-labs/casetrail/internal/logger"
)

// Ensure IndexService implements its ports.
var (
	_ driving.CaseSearcher = (*IndexService)(nil)
	_ ChunkIndexer         = (*IndexService)(nil)
)

const (
	// DefaultTopK is the number of hits returned when the caller does
	// not ask for a specific count.
	DefaultTopK = 5

	collectionPrefix = "case_"
	queryCacheSize   = 256
)

// CollectionName returns the vector store collection for a case.
func CollectionName(caseID string) string {
	return collectionPrefix + caseID
}

// IndexService owns the embedding index for all cases. It embeds
// chunks on the way in and queries on the way out, one collection
// per case.
type IndexService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore

	// queryCache holds embeddings for repeated queries so interactive
	// search does not re-embed the same string.
	queryCache *lru.Cache[string, []float32]
}

// NewIndexService creates an index service backed by the given
// embedder and vector store.
func NewIndexService(embedder driven.EmbeddingService, store driven.VectorStore) *IndexService {
	cache, _ := lru.New[string, []float32](queryCacheSize)
	return &IndexService{
		embedder:   embedder,
		store:      store,
		queryCache: cache,
	}
}

// AddChunks embeds the chunks and writes them to the collection for
// caseID, creating the collection on first use. Record ids carry the
// case id plus a fresh random token, so repeated ingestion of the
// same artifacts can never collide with or silently overwrite earlier
// records. An empty chunk list is a no-op.
func (s *IndexService) AddChunks(ctx context.Context, caseID string, chunks []domain.TextChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if s.embedder == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return 0, domain.ErrVectorStoreUnavailable
	}

	collectionID, err := s.store.GetOrCreateCollection(ctx, CollectionName(caseID), driven.SpaceCosine)
	if err != nil {
		return 0, fmt.Errorf("resolve collection: %w", err)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	batch := driven.EmbeddingBatch{
		IDs:        make([]string, len(chunks)),
		Documents:  texts,
		Metadatas:  make([]domain.ChunkMetadata, len(chunks)),
		Embeddings: vectors,
	}
	for i := range chunks {
		batch.IDs[i] = caseID + "_" + uuid.NewString()
		batch.Metadatas[i] = chunks[i].Metadata()
	}

	if err := s.store.Add(ctx, collectionID, batch); err != nil {
		return 0, fmt.Errorf("add to collection: %w", err)
	}
	logger.Debug("Added %d records to %s", len(chunks), CollectionName(caseID))
	return len(chunks), nil
}

// Search embeds the query and returns the topK nearest chunks from
// the case collection. Distances come back exactly as the store
// reports them: lower means more similar.
func (s *IndexService) Search(ctx context.Context, caseID, query string, topK int) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if strings.TrimSpace(caseID) == "" {
		return nil, fmt.Errorf("%w: case id required", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	logger.Section("Semantic Search")
	logger.Info("Case %s: %q (top %d)", caseID, query, topK)

	collectionID, err := s.store.GetOrCreateCollection(ctx, CollectionName(caseID), driven.SpaceCosine)
	if err != nil {
		return nil, fmt.Errorf("resolve collection: %w", err)
	}

	vector, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.Query(ctx, collectionID, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	hits := make([]domain.SearchHit, len(results))
	for i, r := range results {
		hits[i] = domain.SearchHit{
			ID:       r.ID,
			Distance: r.Distance,
			Text:     r.Document,
			Metadata: r.Metadata,
		}
	}
	logger.Debug("Search returned %d hits", len(hits))
	return hits, nil
}

// queryVector embeds a query string, consulting the cache first.
// The cache key includes the model name so a model change never
// serves stale vectors.
func (s *IndexService) queryVector(ctx context.Context, query string) ([]float32, error) {
	key := s.embedder.ModelName() + "\x00" + query
	if vector, ok := s.queryCache.Get(key); ok {
		logger.Debug("Query embedding cache hit")
		return vector, nil
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	s.queryCache.Add(key, vector)
	return vector, nil
}
