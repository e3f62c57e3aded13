package backends

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
)

// --- Test helpers ---

// fakeEndpoint starts an HTTP server that answers 200 to everything,
// which satisfies both the Ollama and the Chroma ping paths.
func fakeEndpoint(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// deadEndpoint returns a URL whose port is no longer listening.
func deadEndpoint(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	return url
}

// --- Tests ---

func TestInitResult_Close_NilServices(t *testing.T) {
	result := &InitResult{}
	// Should not panic
	result.Close()
}

func TestInit_Success(t *testing.T) {
	cfg := Config{
		EmbeddingBaseURL: fakeEndpoint(t),
		EmbeddingModel:   "nomic-embed-text",
		ChromaURL:        fakeEndpoint(t),
	}

	result, err := Init(cfg)

	require.NoError(t, err)
	require.NotNil(t, result)
	defer result.Close()

	assert.NotNil(t, result.Embedding)
	assert.NotNil(t, result.Vectors)
	assert.False(t, result.InMemory)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "nomic-embed-text", result.Embedding.ModelName())
}

func TestInit_EmbeddingUnreachable(t *testing.T) {
	cfg := Config{
		EmbeddingBaseURL: deadEndpoint(t),
		ChromaURL:        fakeEndpoint(t),
	}

	result, err := Init(cfg)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "ollama serve")
}

func TestInit_ChromaFallsBackToMemory(t *testing.T) {
	cfg := Config{
		EmbeddingBaseURL: fakeEndpoint(t),
		ChromaURL:        deadEndpoint(t),
	}

	result, err := Init(cfg)

	require.NoError(t, err)
	require.NotNil(t, result)
	defer result.Close()

	assert.True(t, result.InMemory)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "in-memory")

	// The fallback store must be usable
	id, err := result.Vectors.GetOrCreateCollection(context.Background(), "case_x", driven.SpaceCosine)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestInit_MemoryVectorsForced(t *testing.T) {
	cfg := Config{
		EmbeddingBaseURL: fakeEndpoint(t),
		ChromaURL:        deadEndpoint(t), // Must never be contacted
		MemoryVectors:    true,
	}

	result, err := Init(cfg)

	require.NoError(t, err)
	require.NotNil(t, result)
	defer result.Close()

	assert.True(t, result.InMemory)
	assert.Empty(t, result.Warnings)
	assert.NotNil(t, result.Vectors)
}
