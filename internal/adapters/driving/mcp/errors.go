// Package mcp provides an MCP (Model Context Protocol) server adapter
// for Casetrail. It exposes case search and timeline building as MCP
// tools so AI assistants can investigate ingested cases.
package mcp

import (
	"errors"
	"fmt"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// ErrMissingSearcher is returned when the search port is missing.
var ErrMissingSearcher = errors.New("mcp: case searcher is required")

// ErrMissingTimeline is returned when the timeline port is missing.
var ErrMissingTimeline = errors.New("mcp: timeline builder is required")

// wrapDomainError translates domain sentinels into messages an MCP client
// can present without knowing this codebase.
func wrapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrCaseNotFound):
		return fmt.Errorf("unknown case: %w", err)
	case errors.Is(err, domain.ErrCaseDirMissing):
		return errors.New("the case directory does not exist on this machine")
	case errors.Is(err, domain.ErrEmptyQuery):
		return errors.New("query must not be empty")
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return errors.New("embedding backend is unreachable; start Ollama and retry")
	case errors.Is(err, domain.ErrVectorStoreUnavailable):
		return errors.New("vector store is unreachable; start Chroma and retry")
	default:
		return err
	}
}
