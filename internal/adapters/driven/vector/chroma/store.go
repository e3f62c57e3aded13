// Package chroma provides a vector store adapter backed by a Chroma
// server's REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the Chroma vector store.
type Config struct {
	// BaseURL is the Chroma API base URL (default: http://localhost:8000).
	BaseURL string

	// Timeout is the request timeout (default: 60s). Adds of large
	// batches can take a while.
	Timeout time.Duration
}

// VectorStore talks to a Chroma server over its v1 REST API.
type VectorStore struct {
	client  *http.Client
	baseURL string
}

// createCollectionRequest is the Chroma API request format for
// collection creation.
type createCollectionRequest struct {
	Name        string            `json:"name"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	GetOrCreate bool              `json:"get_or_create"`
}

// collectionResponse is the Chroma API collection representation.
type collectionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// addRequest is the Chroma API request format for adding records.
type addRequest struct {
	IDs        []string               `json:"ids"`
	Embeddings [][]float32            `json:"embeddings"`
	Documents  []string               `json:"documents"`
	Metadatas  []domain.ChunkMetadata `json:"metadatas"`
}

// queryRequest is the Chroma API request format for nearest-neighbour
// queries.
type queryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

// queryResponse is the Chroma API query response. Results are nested
// per query embedding; this adapter always sends exactly one.
type queryResponse struct {
	IDs       [][]string               `json:"ids"`
	Documents [][]string               `json:"documents"`
	Metadatas [][]domain.ChunkMetadata `json:"metadatas"`
	Distances [][]float64              `json:"distances"`
}

// NewVectorStore creates a new Chroma vector store client.
func NewVectorStore(cfg Config) *VectorStore {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &VectorStore{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// GetOrCreateCollection resolves a collection id by name, creating
// the collection with the requested distance space on first use.
func (s *VectorStore) GetOrCreateCollection(ctx context.Context, name string, space driven.DistanceSpace) (string, error) {
	reqBody := createCollectionRequest{
		Name:        name,
		GetOrCreate: true,
		Metadata:    map[string]string{"hnsw:space": string(space)},
	}

	var resp collectionResponse
	if err := s.post(ctx, "/api/v1/collections", reqBody, &resp); err != nil {
		return "", fmt.Errorf("get or create collection %s: %w", name, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("get or create collection %s: empty id in response", name)
	}
	return resp.ID, nil
}

// Add writes a batch of records to a collection. An empty batch is a
// no-op and sends nothing.
func (s *VectorStore) Add(ctx context.Context, collectionID string, batch driven.EmbeddingBatch) error {
	if len(batch.IDs) == 0 {
		return nil
	}

	reqBody := addRequest{
		IDs:        batch.IDs,
		Embeddings: batch.Embeddings,
		Documents:  batch.Documents,
		Metadatas:  batch.Metadatas,
	}
	if err := s.post(ctx, "/api/v1/collections/"+collectionID+"/add", reqBody, nil); err != nil {
		return fmt.Errorf("add %d records: %w", len(batch.IDs), err)
	}
	return nil
}

// Query returns the topK nearest records for a vector. Distances are
// passed through exactly as Chroma reports them.
func (s *VectorStore) Query(ctx context.Context, collectionID string, vector []float32, topK int) ([]driven.QueryHit, error) {
	reqBody := queryRequest{
		QueryEmbeddings: [][]float32{vector},
		NResults:        topK,
		Include:         []string{"documents", "metadatas", "distances"},
	}

	var resp queryResponse
	if err := s.post(ctx, "/api/v1/collections/"+collectionID+"/query", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	ids := resp.IDs[0]
	hits := make([]driven.QueryHit, len(ids))
	for i, id := range ids {
		hits[i] = driven.QueryHit{ID: id}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			hits[i].Document = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			hits[i].Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			hits[i].Distance = resp.Distances[0][i]
		}
	}
	return hits, nil
}

// Ping validates the server is reachable via the heartbeat endpoint.
func (s *VectorStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/heartbeat", http.NoBody)
	if err != nil {
		return fmt.Errorf("chroma: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("chroma: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chroma: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// post sends a JSON request and optionally decodes a JSON response
// into out.
func (s *VectorStore) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("chroma error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("chroma error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
