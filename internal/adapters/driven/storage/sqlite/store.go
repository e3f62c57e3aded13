package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/arclight-labs/casetrail/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
)

// Store is the SQLite-backed case registry.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.casetrail/data/registry.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".casetrail", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "registry.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CaseStore returns a CaseStore interface backed by this store.
func (s *Store) CaseStore() driven.CaseStore {
	return &caseStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Case Store ====================

// caseStore implements driven.CaseStore.
type caseStore struct {
	store *Store
}

var _ driven.CaseStore = (*caseStore)(nil)

// EnsureCase creates the case row if it is new, or refreshes its
// directory and name if it already exists.
func (s *caseStore) EnsureCase(ctx context.Context, id, dir, name string) error {
	now := time.Now().UTC()

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cases (id, dir, name, created_at, last_ingest_at, chunk_count)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			dir = excluded.dir,
			name = excluded.name,
			last_ingest_at = excluded.last_ingest_at
	`, id, dir, name, now, now)

	if err != nil {
		return fmt.Errorf("saving case: %w", err)
	}
	return nil
}

// GetCase retrieves a case by ID.
func (s *caseStore) GetCase(ctx context.Context, id string) (*domain.CaseRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, dir, name, created_at, last_ingest_at, chunk_count
		FROM cases WHERE id = ?
	`, id)

	rec, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCaseNotFound
		}
		return nil, fmt.Errorf("scanning case: %w", err)
	}
	return rec, nil
}

// ListCases returns all known cases, most recently ingested first.
func (s *caseStore) ListCases(ctx context.Context) ([]domain.CaseRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, dir, name, created_at, last_ingest_at, chunk_count
		FROM cases ORDER BY last_ingest_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	defer rows.Close()

	//nolint:prealloc // size unknown from query
	var cases []domain.CaseRecord
	for rows.Next() {
		rec, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		cases = append(cases, *rec)
	}
	return cases, rows.Err()
}

// BeginRun records the start of an ingest run and returns its id.
func (s *caseStore) BeginRun(ctx context.Context, caseID string, startedAt time.Time) (int64, error) {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (case_id, started_at, status)
		VALUES (?, ?, ?)
	`, caseID, startedAt.UTC(), domain.RunRunning)
	if err != nil {
		return 0, fmt.Errorf("recording run start: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}
	return runID, nil
}

// FinishRun closes an ingest run. A successful run also rolls its
// chunk count into the case totals.
func (s *caseStore) FinishRun(ctx context.Context, runID int64, chunkCount int, status domain.RunStatus, errMsg string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE ingest_runs
		SET finished_at = ?, chunk_count = ?, status = ?, error = ?
		WHERE id = ?
	`, now, chunkCount, status, nullString(errMsg), runID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}

	if status == domain.RunOK {
		_, err = tx.ExecContext(ctx, `
			UPDATE cases
			SET chunk_count = chunk_count + ?, last_ingest_at = ?
			WHERE id = (SELECT case_id FROM ingest_runs WHERE id = ?)
		`, chunkCount, now, runID)
		if err != nil {
			return fmt.Errorf("updating case totals: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs for a case, newest first.
// A non-positive limit defaults to 20.
func (s *caseStore) ListRuns(ctx context.Context, caseID string, limit int) ([]domain.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, case_id, started_at, finished_at, chunk_count, status, error
		FROM ingest_runs WHERE case_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ?
	`, caseID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	//nolint:prealloc // size unknown from query
	var runs []domain.IngestRun
	for rows.Next() {
		var run domain.IngestRun
		var startedAt, finishedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.CaseID, &startedAt, &finishedAt,
			&run.ChunkCount, &run.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if startedAt.Valid {
			run.StartedAt = startedAt.Time
		}
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *caseStore) Close() error {
	return s.store.Close()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner) (*domain.CaseRecord, error) {
	var rec domain.CaseRecord
	var createdAt, lastIngestAt sql.NullTime
	if err := row.Scan(&rec.ID, &rec.Dir, &rec.Name, &createdAt, &lastIngestAt, &rec.ChunkCount); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}
	if lastIngestAt.Valid {
		rec.LastIngestAt = lastIngestAt.Time
	}
	return &rec, nil
}

// nullString converts an empty string to a SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
