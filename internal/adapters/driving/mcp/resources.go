package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for Casetrail resources.
	uriScheme = "casetrail://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource listing registered cases.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "cases",
		Name:        "cases",
		Description: "Cases registered on this machine",
		MIMEType:    "application/json",
	}, s.handleCasesResource)
}

// handleCasesResource returns the registered cases as JSON.
func (s *Server) handleCasesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Cases == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	cases, err := s.ports.Cases.ListCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}

	// Build simplified case list.
	type caseInfo struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Dir        string `json:"dir"`
		ChunkCount int    `json:"chunk_count"`
		LastIngest string `json:"last_ingest,omitempty"`
	}

	infos := make([]caseInfo, len(cases))
	for i, c := range cases {
		lastIngest := ""
		if !c.LastIngestAt.IsZero() {
			lastIngest = c.LastIngestAt.UTC().Format(time.RFC3339)
		}
		infos[i] = caseInfo{
			ID:         c.ID,
			Name:       c.Name,
			Dir:        c.Dir,
			ChunkCount: c.ChunkCount,
			LastIngest: lastIngest,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling cases: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
