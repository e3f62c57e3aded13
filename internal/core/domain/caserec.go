package domain

import "time"

// CaseRecord is one registered case in the local case registry.
// The registry is bookkeeping for the CLI and MCP surfaces: it maps a
// case id to its directory and remembers ingestion history. Corpus
// and timeline semantics never depend on it.
type CaseRecord struct {
	// ID is the opaque case identifier.
	ID string

	// Dir is the absolute path of the case directory.
	Dir string

	// Name is an optional human-readable label.
	Name string

	// CreatedAt is when the case was first registered.
	CreatedAt time.Time

	// LastIngestAt is when the case was last ingested. Zero when the
	// case has never completed an ingestion run.
	LastIngestAt time.Time

	// ChunkCount is the total chunks indexed into the case across all
	// completed runs. Runs append to the collection, never replace it.
	ChunkCount int
}

// RunStatus describes the outcome of an ingestion run.
type RunStatus string

// Ingestion run states.
const (
	RunRunning RunStatus = "running"
	RunOK      RunStatus = "ok"
	RunFailed  RunStatus = "failed"
)

// IngestRun records one call to the corpus builder for a case.
type IngestRun struct {
	// ID is the run's registry row id.
	ID int64

	// CaseID identifies the case that was ingested.
	CaseID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run completed. Zero while running.
	FinishedAt time.Time

	// ChunkCount is how many chunks the run indexed.
	ChunkCount int

	// Status is the run outcome.
	Status RunStatus

	// Error holds the failure message for failed runs.
	Error string
}
