package driven

import (
	"context"
	"time"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// CaseStore persists the local case registry: which cases exist, where
// their directories are, and how past ingestion runs went. This is an
// optional service - when nil, cases cannot be looked up by id and run
// history is not kept, but ingestion and timelines still work.
type CaseStore interface {
	// EnsureCase registers a case, updating the directory and name if
	// it already exists.
	EnsureCase(ctx context.Context, id, dir, name string) error

	// GetCase retrieves a case by id.
	// Returns domain.ErrCaseNotFound when the id is unknown.
	GetCase(ctx context.Context, id string) (*domain.CaseRecord, error)

	// ListCases returns all registered cases, newest first.
	ListCases(ctx context.Context) ([]domain.CaseRecord, error)

	// BeginRun records the start of an ingestion run and returns the
	// run id.
	BeginRun(ctx context.Context, caseID string, startedAt time.Time) (int64, error)

	// FinishRun records an ingestion run's outcome and rolls the
	// case's last-ingest bookkeeping forward on success.
	FinishRun(ctx context.Context, runID int64, chunkCount int, status domain.RunStatus, errMsg string) error

	// ListRuns returns a case's ingestion runs, newest first.
	ListRuns(ctx context.Context, caseID string, limit int) ([]domain.IngestRun, error)

	// Close releases resources.
	Close() error
}
