package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrCaseNotFound indicates a case id is not in the registry.
	ErrCaseNotFound = errors.New("case not found")

	// ErrCaseDirMissing indicates a case directory does not exist.
	ErrCaseDirMissing = errors.New("case directory missing")

	// ErrEmptyQuery indicates a search was requested with no query text.
	ErrEmptyQuery = errors.New("empty query")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Ingestion and semantic search are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not
	// configured. Ingestion and semantic search are disabled without it.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrCaseStoreUnavailable indicates the case registry is not
	// configured. Commands that resolve cases by id need it.
	ErrCaseStoreUnavailable = errors.New("case store unavailable")

	// ErrIngestInProgress indicates an ingestion run is already active
	// for the case. Concurrent runs against one case are not supported.
	ErrIngestInProgress = errors.New("ingestion already in progress")
)
