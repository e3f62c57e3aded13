package driving

import (
	"context"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// CaseSearcher provides semantic search over a case's corpus.
type CaseSearcher interface {
	// Search embeds the query and returns the topK nearest chunks from
	// the case's collection, closest first.
	Search(ctx context.Context, caseID, query string, topK int) ([]domain.SearchHit, error)
}
