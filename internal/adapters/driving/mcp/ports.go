package mcp

import (
	"context"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driving"
)

// CaseDirectory resolves case ids and lists registered cases.
// Satisfied by the SQLite case store.
type CaseDirectory interface {
	GetCase(ctx context.Context, id string) (*domain.CaseRecord, error)
	ListCases(ctx context.Context) ([]domain.CaseRecord, error)
}

// Ports aggregates all port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Searcher provides semantic search within a case.
	Searcher driving.CaseSearcher

	// Timeline builds fused event timelines.
	Timeline driving.TimelineBuilder

	// Cases resolves case ids to directories.
	Cases CaseDirectory
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Searcher == nil {
		return ErrMissingSearcher
	}
	if p.Timeline == nil {
		return ErrMissingTimeline
	}
	// Cases is optional; without it timelines need an explicit case_dir
	return nil
}
