package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
	"github.com/arclight-labs/casetrail/internal/core/ports/driving"
	"github.com/arclight-labs/casetrail/internal/logger"
)

// Ensure CorpusService implements the driving port interface.
var _ driving.CorpusIngestor = (*CorpusService)(nil)

// ChunkIndexer is the slice of the index service the corpus builder
// depends on. Consumer-side interface so the corpus service can be
// tested without an embedding backend.
type ChunkIndexer interface {
	AddChunks(ctx context.Context, caseID string, chunks []domain.TextChunk) (int, error)
}

const (
	// DefaultBatchSize is the number of chunks submitted to the index
	// per call.
	DefaultBatchSize = 5000
)

// CorpusService walks a case directory, turns every recognized
// artifact into text chunks and submits them to the index in batches.
type CorpusService struct {
	indexer    ChunkIndexer
	generators map[domain.Source]driven.DerivativeGenerator
	caseStore  driven.CaseStore
	batchSize  int

	mu     sync.Mutex
	active map[string]bool
}

// NewCorpusService creates a corpus service with the default batch
// size. Generators are keyed by the source they produce.
func NewCorpusService(indexer ChunkIndexer, generators ...driven.DerivativeGenerator) *CorpusService {
	bySource := make(map[domain.Source]driven.DerivativeGenerator, len(generators))
	for _, g := range generators {
		bySource[g.Source()] = g
	}
	return &CorpusService{
		indexer:    indexer,
		generators: bySource,
		batchSize:  DefaultBatchSize,
		active:     make(map[string]bool),
	}
}

// SetCaseStore enables ingest run bookkeeping. The store is optional;
// without it ingestion still works, it just leaves no registry trail.
func (s *CorpusService) SetCaseStore(store driven.CaseStore) {
	s.caseStore = store
}

// SetBatchSize overrides the index submission batch size.
// Values below 1 are ignored.
func (s *CorpusService) SetBatchSize(n int) {
	if n >= 1 {
		s.batchSize = n
	}
}

// BuildAndIndex walks caseDir, converts artifacts to chunks, writes
// the per-source summary files and submits the chunks to the index.
// It returns the number of chunks submitted. A case with no indexable
// text returns 0 with no error and touches no backend.
func (s *CorpusService) BuildAndIndex(ctx context.Context, caseDir, caseID string) (int, error) {
	if strings.TrimSpace(caseDir) == "" {
		return 0, fmt.Errorf("%w: case directory required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(caseID) == "" {
		return 0, fmt.Errorf("%w: case id required", domain.ErrInvalidInput)
	}

	info, err := os.Stat(caseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", domain.ErrCaseDirMissing, caseDir)
		}
		return 0, fmt.Errorf("stat case directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%w: %s is not a directory", domain.ErrCaseDirMissing, caseDir)
	}

	if err := s.acquire(caseID); err != nil {
		return 0, err
	}
	defer s.release(caseID)

	logger.Section("Corpus Ingestion")
	logger.Info("Case %s: %s", caseID, caseDir)

	// Register the case before the run row that references it.
	s.ensureCase(ctx, caseID, caseDir)
	runID := s.beginRun(ctx, caseID)

	// 1. Open the summary files. They are rebuilt from scratch on
	// every run, so truncate rather than append.
	summaries, err := newSummaryWriter(caseDir)
	if err != nil {
		s.finishRun(ctx, runID, 0, domain.RunFailed, err)
		return 0, fmt.Errorf("open summary files: %w", err)
	}
	defer summaries.Close()

	// 2. Walk the case directory and collect chunks. A single broken
	// artifact is skipped, never fatal.
	chunks, skipped, err := s.collectChunks(ctx, caseDir, caseID, summaries)
	if err != nil {
		s.finishRun(ctx, runID, 0, domain.RunFailed, err)
		return 0, err
	}
	if skipped > 0 {
		logger.Warn("Skipped %d artifacts", skipped)
	}
	if len(chunks) == 0 {
		logger.Info("No indexable text found in %s", caseDir)
		s.finishRun(ctx, runID, 0, domain.RunOK, nil)
		return 0, nil
	}

	// 3. Submit to the index in fixed-size batches.
	total := 0
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		added, err := s.indexer.AddChunks(ctx, caseID, chunks[start:end])
		if err != nil {
			s.finishRun(ctx, runID, total, domain.RunFailed, err)
			return 0, fmt.Errorf("index batch starting at %d: %w", start, err)
		}
		total += added
		logger.Debug("Indexed batch %d-%d", start, end)
	}

	s.finishRun(ctx, runID, total, domain.RunOK, nil)
	logger.Info("Ingestion complete: %d chunks indexed", total)
	return total, nil
}

// acquire marks a case as having an ingestion in flight. Concurrent
// ingestion into the same case would race on the summary files.
func (s *CorpusService) acquire(caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[caseID] {
		return fmt.Errorf("%w: case %s", domain.ErrIngestInProgress, caseID)
	}
	s.active[caseID] = true
	return nil
}

func (s *CorpusService) release(caseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, caseID)
}

// collectChunks walks the case directory tree and converts every
// recognized artifact into chunks. The artifacts subtree holds
// derivatives produced by this pipeline and is excluded so its
// contents are never re-ingested as plain text.
func (s *CorpusService) collectChunks(ctx context.Context, caseDir, caseID string, summaries *summaryWriter) ([]domain.TextChunk, int, error) {
	artifactsDir := filepath.Join(caseDir, domain.ArtifactsDirName)

	var chunks []domain.TextChunk
	skipped := 0

	walkErr := filepath.WalkDir(caseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == caseDir {
				return err
			}
			logger.Warn("Skipping unreadable path %s: %v", path, err)
			skipped++
			return nil
		}
		if d.IsDir() {
			if path == artifactsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if domain.IsSummaryFileName(name) {
			return nil
		}
		source, ok := domain.ClassifySource(filepath.Ext(name))
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(caseDir, path)
		if err != nil {
			rel = name
		}
		rel = filepath.ToSlash(rel)

		switch source {
		case domain.SourceFile:
			chunk, ok, err := s.readTextArtifact(path, rel, caseID)
			if err != nil {
				logger.Warn("Skipping text file %s: %v", rel, err)
				skipped++
				return nil
			}
			if ok {
				chunks = append(chunks, chunk)
			}
		default:
			fileChunks, err := s.generateChunks(ctx, source, path, caseDir, rel, caseID, summaries)
			if err != nil {
				logger.Warn("Skipping artifact %s: %v", rel, err)
				skipped++
				return nil
			}
			chunks = append(chunks, fileChunks...)
		}
		return nil
	})
	if walkErr != nil {
		return nil, skipped, fmt.Errorf("walk case directory: %w", walkErr)
	}
	return chunks, skipped, nil
}

// readTextArtifact loads a plain-text artifact as a single chunk.
// Bytes that are not valid UTF-8 are replaced with U+FFFD rather than
// failing the file.
func (s *CorpusService) readTextArtifact(path, rel, caseID string) (domain.TextChunk, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.TextChunk{}, false, err
	}
	text := strings.ToValidUTF8(string(data), "�")
	chunk, ok := domain.NewTextChunk(text, domain.SourceFile, caseID, rel)
	if !ok {
		logger.Debug("Empty text file %s", rel)
		return domain.TextChunk{}, false, nil
	}
	return chunk, true, nil
}

// generateChunks runs the derivative generator for a binary artifact
// and converts each line of the resulting text derivative into a
// chunk. Every line is also appended to the per-source summary file.
func (s *CorpusService) generateChunks(ctx context.Context, source domain.Source, path, caseDir, rel, caseID string, summaries *summaryWriter) ([]domain.TextChunk, error) {
	gen, ok := s.generators[source]
	if !ok {
		return nil, fmt.Errorf("no generator registered for source %s", source)
	}

	result, err := gen.Generate(ctx, path, caseDir)
	if err != nil {
		return nil, fmt.Errorf("generate derivative: %w", err)
	}
	if result.EventsCount == 0 {
		logger.Debug("No events in %s", rel)
		return nil, nil
	}

	lines, err := readLines(result.TxtPath)
	if err != nil {
		return nil, fmt.Errorf("read derivative %s: %w", result.TxtPath, err)
	}

	chunks := make([]domain.TextChunk, 0, len(lines))
	for _, line := range lines {
		chunk, ok := domain.NewTextChunk(line, source, caseID, rel)
		if !ok {
			continue
		}
		if err := summaries.Append(source, chunk.Text); err != nil {
			return nil, fmt.Errorf("append summary: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	logger.Debug("%s: %d events, %d chunks", rel, result.EventsCount, len(chunks))
	return chunks, nil
}

func (s *CorpusService) beginRun(ctx context.Context, caseID string) int64 {
	if s.caseStore == nil {
		return 0
	}
	runID, err := s.caseStore.BeginRun(ctx, caseID, time.Now().UTC())
	if err != nil {
		logger.Warn("Failed to record ingest run: %v", err)
		return 0
	}
	return runID
}

func (s *CorpusService) finishRun(ctx context.Context, runID int64, chunkCount int, status domain.RunStatus, runErr error) {
	if s.caseStore == nil || runID == 0 {
		return
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := s.caseStore.FinishRun(ctx, runID, chunkCount, status, errMsg); err != nil {
		logger.Warn("Failed to finish ingest run: %v", err)
	}
}

func (s *CorpusService) ensureCase(ctx context.Context, caseID, caseDir string) {
	if s.caseStore == nil {
		return
	}
	absDir, err := filepath.Abs(caseDir)
	if err != nil {
		absDir = caseDir
	}
	if err := s.caseStore.EnsureCase(ctx, caseID, absDir, filepath.Base(absDir)); err != nil {
		logger.Warn("Failed to register case %s: %v", caseID, err)
	}
}

// readLines reads a text file line by line. bufio.Reader instead of a
// Scanner so a single oversized line cannot abort the whole file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}

// summaryWriter appends derivative lines to the per-source summary
// files at the case root. Both files are truncated on creation so
// each run rebuilds them from scratch.
type summaryWriter struct {
	evtx     *os.File
	registry *os.File
}

func newSummaryWriter(caseDir string) (*summaryWriter, error) {
	evtx, err := os.Create(filepath.Join(caseDir, domain.SummaryFileName(domain.SourceEvtx)))
	if err != nil {
		return nil, err
	}
	registry, err := os.Create(filepath.Join(caseDir, domain.SummaryFileName(domain.SourceRegistry)))
	if err != nil {
		evtx.Close()
		return nil, err
	}
	return &summaryWriter{evtx: evtx, registry: registry}, nil
}

// Append writes one derivative line to the summary file for source.
// Lines for unknown sources are dropped.
func (w *summaryWriter) Append(source domain.Source, line string) error {
	var f *os.File
	switch source {
	case domain.SourceEvtx:
		f = w.evtx
	case domain.SourceRegistry:
		f = w.registry
	default:
		return nil
	}
	_, err := f.WriteString(line + "\n")
	return err
}

func (w *summaryWriter) Close() error {
	return errors.Join(w.evtx.Close(), w.registry.Close())
}
