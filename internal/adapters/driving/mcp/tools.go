package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// SearchCaseInput is the input schema for the search_case tool.
type SearchCaseInput struct {
	CaseID string `json:"case_id" jsonschema:"the case whose index to search"`
	Query  string `json:"query" jsonschema:"natural language description of the evidence to find"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"maximum number of hits to return (default 5)"`
}

// SearchCaseOutput is the output schema for the search_case tool.
type SearchCaseOutput struct {
	Hits  []SearchHitOutput `json:"hits"`
	Count int               `json:"count"`
}

// SearchHitOutput represents a single search hit.
type SearchHitOutput struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	File     string  `json:"file"`
}

// CaseTimelineInput is the input schema for the case_timeline tool.
type CaseTimelineInput struct {
	CaseID    string `json:"case_id,omitempty" jsonschema:"case id registered on this machine"`
	CaseDir   string `json:"case_dir,omitempty" jsonschema:"path to the case directory (alternative to case_id)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of events to return (default 200)"`
	Ascending bool   `json:"ascending,omitempty" jsonschema:"oldest events first instead of newest first"`
}

// CaseTimelineOutput is the output schema for the case_timeline tool.
type CaseTimelineOutput struct {
	Events []domain.TimelineEvent `json:"events"`
	Count  int                    `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_case",
		Description: "Semantic search over an ingested case's artifacts",
	}, s.handleSearchCase)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "case_timeline",
		Description: "Build a fused, time-ordered event timeline for a case",
	}, s.handleCaseTimeline)
}

// handleSearchCase handles the search_case tool invocation.
func (s *Server) handleSearchCase(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchCaseInput,
) (*mcp.CallToolResult, SearchCaseOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = 5
	}

	hits, err := s.ports.Searcher.Search(ctx, input.CaseID, input.Query, topK)
	if err != nil {
		return nil, SearchCaseOutput{}, wrapDomainError(err)
	}

	output := SearchCaseOutput{
		Hits:  make([]SearchHitOutput, len(hits)),
		Count: len(hits),
	}

	for i := range hits {
		output.Hits[i] = SearchHitOutput{
			ID:       hits[i].ID,
			Distance: hits[i].Distance,
			Text:     hits[i].Text,
			Source:   hits[i].Metadata.Source,
			File:     hits[i].Metadata.File,
		}
	}

	return nil, output, nil
}

// handleCaseTimeline handles the case_timeline tool invocation.
func (s *Server) handleCaseTimeline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CaseTimelineInput,
) (*mcp.CallToolResult, CaseTimelineOutput, error) {
	caseDir, err := s.resolveCaseDir(ctx, input)
	if err != nil {
		return nil, CaseTimelineOutput{}, err
	}

	opts := domain.DefaultTimelineOptions()
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}
	opts.Descending = !input.Ascending

	events, err := s.ports.Timeline.Build(ctx, caseDir, opts)
	if err != nil {
		return nil, CaseTimelineOutput{}, wrapDomainError(err)
	}

	return nil, CaseTimelineOutput{Events: events, Count: len(events)}, nil
}

// resolveCaseDir turns tool input into a case directory, preferring an
// explicit path over a registry lookup.
func (s *Server) resolveCaseDir(ctx context.Context, input CaseTimelineInput) (string, error) {
	if input.CaseDir != "" {
		return input.CaseDir, nil
	}
	if input.CaseID == "" {
		return "", errors.New("either case_id or case_dir is required")
	}
	if s.ports.Cases == nil {
		return "", errors.New("no case registry available; pass case_dir instead of case_id")
	}

	record, err := s.ports.Cases.GetCase(ctx, input.CaseID)
	if err != nil {
		return "", wrapDomainError(err)
	}
	return record.Dir, nil
}
