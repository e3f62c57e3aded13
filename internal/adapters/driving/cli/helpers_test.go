package cli

import (
	"context"
	"time"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// mockSearcher implements driving.CaseSearcher for testing.
type mockSearcher struct {
	hits       []domain.SearchHit
	err        error
	lastCaseID string
	lastQuery  string
	lastTopK   int
}

func (m *mockSearcher) Search(_ context.Context, caseID, query string, topK int) ([]domain.SearchHit, error) {
	m.lastCaseID = caseID
	m.lastQuery = query
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

// mockCorpusIngestor implements driving.CorpusIngestor for testing.
type mockCorpusIngestor struct {
	count      int
	err        error
	lastDir    string
	lastCaseID string
}

func (m *mockCorpusIngestor) BuildAndIndex(_ context.Context, caseDir, caseID string) (int, error) {
	m.lastDir = caseDir
	m.lastCaseID = caseID
	if m.err != nil {
		return 0, m.err
	}
	return m.count, nil
}

// mockTimeline implements driving.TimelineBuilder for testing.
type mockTimeline struct {
	events   []domain.TimelineEvent
	err      error
	lastDir  string
	lastOpts domain.TimelineOptions
}

func (m *mockTimeline) Build(_ context.Context, caseDir string, opts domain.TimelineOptions) ([]domain.TimelineEvent, error) {
	m.lastDir = caseDir
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.events, nil
}

// mockCaseStore implements driven.CaseStore for testing.
type mockCaseStore struct {
	record *domain.CaseRecord
	cases  []domain.CaseRecord
	runs   []domain.IngestRun
	err    error
}

func (m *mockCaseStore) EnsureCase(context.Context, string, string, string) error {
	return m.err
}

func (m *mockCaseStore) GetCase(context.Context, string) (*domain.CaseRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.record == nil {
		return nil, domain.ErrCaseNotFound
	}
	return m.record, nil
}

func (m *mockCaseStore) ListCases(context.Context) ([]domain.CaseRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cases, nil
}

func (m *mockCaseStore) BeginRun(context.Context, string, time.Time) (int64, error) {
	return 1, m.err
}

func (m *mockCaseStore) FinishRun(context.Context, int64, int, domain.RunStatus, string) error {
	return m.err
}

func (m *mockCaseStore) ListRuns(context.Context, string, int) ([]domain.IngestRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.runs, nil
}

func (m *mockCaseStore) Close() error { return nil }

// setupTestServices installs mocks for every service and marks the
// lazy initialisers as done, so commands under test never touch real
// backends. The returned cleanup restores the previous state.
func setupTestServices() func() {
	oldSearch := searchService
	oldIngest := ingestService
	oldTimeline := timelineService
	oldCases := caseStore
	oldCore, oldRegistry, oldBackends := coreReady, registryReady, backendsReady

	searchService = &mockSearcher{hits: []domain.SearchHit{
		{
			ID:       "case-1_abc",
			Distance: 0.1234,
			Text:     "2024-03-01T08:00:00Z Security 4624 TargetUserName=jdoe",
			Metadata: domain.ChunkMetadata{Source: "evtx", CaseID: "case-1", File: "Security.evtx"},
		},
	}}
	ingestService = &mockCorpusIngestor{count: 42}
	timelineService = &mockTimeline{}
	caseStore = &mockCaseStore{}
	coreReady, registryReady, backendsReady = true, true, true

	return func() {
		searchService = oldSearch
		ingestService = oldIngest
		timelineService = oldTimeline
		caseStore = oldCases
		coreReady, registryReady, backendsReady = oldCore, oldRegistry, oldBackends
	}
}
