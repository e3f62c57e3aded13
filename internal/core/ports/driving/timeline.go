package driving

import (
	"context"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// TimelineBuilder fuses a case's derivative record streams into one
// bounded, ordered timeline.
type TimelineBuilder interface {
	// Build reads every derivative file under caseDir and returns the
	// merged event sequence. Known-time events come first in the
	// requested direction; unknown-time events always sit at the tail.
	Build(ctx context.Context, caseDir string, opts domain.TimelineOptions) ([]domain.TimelineEvent, error)
}
