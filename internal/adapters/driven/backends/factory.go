// Package backends provides factory functions for creating the embedding
// and vector store adapters from configuration.
package backends

import (
	"context"
	"fmt"
	"time"

	"github.com/arclight-labs/casetrail/internal/adapters/driven/embedding/ollama"
	"github.com/arclight-labs/casetrail/internal/adapters/driven/vector/chroma"
	"github.com/arclight-labs/casetrail/internal/adapters/driven/vector/memory"
	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Config selects and tunes the backing services. Zero values fall through
// to each adapter's defaults (local Ollama and Chroma endpoints).
type Config struct {
	// EmbeddingBaseURL is the Ollama endpoint.
	EmbeddingBaseURL string

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string

	// EmbeddingMaxConcurrency caps in-flight embedding requests.
	EmbeddingMaxConcurrency int

	// EmbeddingRequestsPerSecond throttles embedding calls.
	// Zero means unthrottled.
	EmbeddingRequestsPerSecond float64

	// ChromaURL is the Chroma endpoint.
	ChromaURL string

	// MemoryVectors forces the in-memory vector store without contacting
	// Chroma. Indexed data lives only for the process lifetime.
	MemoryVectors bool
}

// InitResult contains the result of backend initialisation.
type InitResult struct {
	Embedding driven.EmbeddingService
	Vectors   driven.VectorStore
	Warnings  []string // Non-fatal issues that caused fallback.
	InMemory  bool     // True if vectors ended up in the in-memory store.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Embedding != nil {
		r.Embedding.Close()
	}
	if r.Vectors != nil {
		r.Vectors.Close()
	}
}

// Init creates and validates the embedding service and vector store.
//
// The embedding service must be reachable - ingestion and search are both
// meaningless without it, so an unreachable Ollama is a hard error. An
// unreachable Chroma degrades to the in-memory vector store with a warning
// so air-gapped triage still works.
func Init(cfg Config) (*InitResult, error) {
	embedding, err := createAndValidateEmbedding(cfg)
	if err != nil {
		return nil, err
	}

	result := &InitResult{Embedding: embedding}

	if cfg.MemoryVectors {
		result.Vectors = memory.NewVectorStore()
		result.InMemory = true
		return result, nil
	}

	store := chroma.NewVectorStore(chroma.Config{
		BaseURL: cfg.ChromaURL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		store.Close()
		result.Vectors = memory.NewVectorStore()
		result.InMemory = true
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"chroma unreachable (%v); using in-memory vectors, this run's index will not persist", err))
		return result, nil
	}

	result.Vectors = store
	return result, nil
}

// createAndValidateEmbedding creates the embedding service and validates
// connectivity. Returns an error with guidance when the service is down.
func createAndValidateEmbedding(cfg Config) (driven.EmbeddingService, error) {
	svc := ollama.NewEmbeddingService(ollama.Config{
		BaseURL:           cfg.EmbeddingBaseURL,
		Model:             cfg.EmbeddingModel,
		MaxConcurrency:    cfg.EmbeddingMaxConcurrency,
		RequestsPerSecond: cfg.EmbeddingRequestsPerSecond,
	})

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Start it with 'ollama serve' and fetch the model with 'ollama pull %s'",
			domain.ErrEmbeddingUnavailable, err, svc.ModelName())
	}

	return svc, nil
}
