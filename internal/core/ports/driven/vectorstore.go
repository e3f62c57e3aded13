package driven

import (
	"context"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// DistanceSpace selects how a collection measures dissimilarity.
// The space is fixed for the lifetime of a collection.
type DistanceSpace string

// SpaceCosine is the cosine-distance space every case collection uses.
const SpaceCosine DistanceSpace = "cosine"

// EmbeddingBatch is one add call's worth of records. All slices are
// index-aligned and the same length.
type EmbeddingBatch struct {
	// IDs are globally unique record ids. The store overwrites
	// silently on id collision, which is why ids carry a random token.
	IDs []string

	// Documents are the original chunk texts.
	Documents []string

	// Metadatas are the chunks' provenance records.
	Metadatas []domain.ChunkMetadata

	// Embeddings are the document vectors.
	Embeddings [][]float32
}

// QueryHit is one nearest-neighbour result from a collection query.
type QueryHit struct {
	// ID is the stored record id.
	ID string

	// Document is the stored chunk text.
	Document string

	// Metadata is the stored provenance record.
	Metadata domain.ChunkMetadata

	// Distance is the dissimilarity to the query vector.
	// Lower means closer.
	Distance float64
}

// VectorStore is the external embedding index. One logical collection
// holds one case's records.
type VectorStore interface {
	// GetOrCreateCollection resolves a collection by name, creating it
	// in the given distance space when absent. Idempotent. Returns the
	// store's handle for the collection.
	GetOrCreateCollection(ctx context.Context, name string, space DistanceSpace) (string, error)

	// Add submits a batch of embedding records to a collection.
	Add(ctx context.Context, collectionID string, batch EmbeddingBatch) error

	// Query returns the topK records nearest to the query vector,
	// closest first.
	Query(ctx context.Context, collectionID string, vector []float32, topK int) ([]QueryHit, error)

	// Close releases resources.
	Close() error
}
