package mcp

import (
	"context"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// mockCaseSearcher is a mock implementation of driving.CaseSearcher.
type mockCaseSearcher struct {
	hits []domain.SearchHit
	err  error

	lastCaseID string
	lastQuery  string
	lastTopK   int
}

func (m *mockCaseSearcher) Search(
	_ context.Context,
	caseID, query string,
	topK int,
) ([]domain.SearchHit, error) {
	m.lastCaseID = caseID
	m.lastQuery = query
	m.lastTopK = topK
	return m.hits, m.err
}

// mockTimelineBuilder is a mock implementation of driving.TimelineBuilder.
type mockTimelineBuilder struct {
	events []domain.TimelineEvent
	err    error

	lastDir  string
	lastOpts domain.TimelineOptions
}

func (m *mockTimelineBuilder) Build(
	_ context.Context,
	caseDir string,
	opts domain.TimelineOptions,
) ([]domain.TimelineEvent, error) {
	m.lastDir = caseDir
	m.lastOpts = opts
	return m.events, m.err
}

// mockCaseDirectory is a mock implementation of CaseDirectory.
type mockCaseDirectory struct {
	record  *domain.CaseRecord
	records []domain.CaseRecord
	err     error
}

func (m *mockCaseDirectory) GetCase(_ context.Context, _ string) (*domain.CaseRecord, error) {
	return m.record, m.err
}

func (m *mockCaseDirectory) ListCases(_ context.Context) ([]domain.CaseRecord, error) {
	return m.records, m.err
}
