// Package watch re-ingests a case when artifact files inside its
// directory change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/logger"
)

// DefaultDebounce batches a burst of file events into one ingestion run.
// Copying evidence into a case produces many writes in quick succession.
const DefaultDebounce = 2 * time.Second

// Ingestor triggers an ingestion run. Satisfied by the corpus service.
type Ingestor interface {
	BuildAndIndex(ctx context.Context, caseDir, caseID string) (int, error)
}

// Config configures a Watcher.
type Config struct {
	// CaseDir is the case directory to watch.
	CaseDir string

	// CaseID is the case re-ingested on each trigger.
	CaseID string

	// Debounce is how long the tree must stay quiet before re-ingesting.
	// Defaults to DefaultDebounce.
	Debounce time.Duration

	// OnResult, when set, observes the outcome of each ingestion run.
	OnResult func(count int, err error)
}

// Watcher watches a case directory tree and re-ingests on changes.
//
// Generated content is ignored: events under artifacts/ and on the
// summary files are this pipeline's own output, and reacting to them
// would re-trigger forever.
type Watcher struct {
	cfg     Config
	ingest  Ingestor
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher over cfg.CaseDir, registering every
// non-generated subdirectory.
func NewWatcher(cfg Config, ingest Ingestor) (*Watcher, error) {
	if cfg.CaseDir == "" {
		return nil, errors.New("case directory required")
	}
	if cfg.CaseID == "" {
		return nil, errors.New("case id required")
	}
	if ingest == nil {
		return nil, errors.New("ingestor required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{cfg: cfg, ingest: ingest, watcher: fsw}
	if err := w.addRecursive(cfg.CaseDir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks, re-ingesting the case whenever watched files settle after
// a change. Returns the context's error when cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	logger.Info("Watching %s (case %s)", w.cfg.CaseDir, w.cfg.CaseID)

	debounce := time.NewTimer(w.cfg.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.shouldTrigger(event) {
				continue
			}
			logger.Debug("Change detected: %s (%s)", event.Name, event.Op)

			// A new directory needs its own watch before files land in it.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						logger.Warn("Watch new directory %s: %v", event.Name, err)
					}
				}
			}

			pending = true
			debounce.Reset(w.cfg.Debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			w.runIngest(ctx)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) runIngest(ctx context.Context) {
	count, err := w.ingest.BuildAndIndex(ctx, w.cfg.CaseDir, w.cfg.CaseID)
	if err != nil {
		logger.Warn("Re-ingestion failed: %v", err)
	} else {
		logger.Info("Re-ingested %d chunks for case %s", count, w.cfg.CaseID)
	}
	if w.cfg.OnResult != nil {
		w.cfg.OnResult(count, err)
	}
}

// addRecursive watches dir and every subdirectory below it, skipping
// generated and hidden subtrees.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.cfg.CaseDir && w.skipSubtree(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// skipSubtree reports whether a directory is excluded from watching.
func (w *Watcher) skipSubtree(path string) bool {
	rel, ok := w.relPath(path)
	if !ok {
		return true
	}
	if rel == domain.ArtifactsDirName || strings.HasPrefix(rel, domain.ArtifactsDirName+"/") {
		return true
	}
	return isHidden(rel)
}

// shouldTrigger reports whether a file event warrants re-ingestion.
func (w *Watcher) shouldTrigger(event fsnotify.Event) bool {
	// Chmod alone changes no content.
	if event.Op == fsnotify.Chmod {
		return false
	}

	rel, ok := w.relPath(event.Name)
	if !ok {
		return false
	}
	if rel == domain.ArtifactsDirName || strings.HasPrefix(rel, domain.ArtifactsDirName+"/") {
		return false
	}
	if domain.IsSummaryFileName(filepath.Base(rel)) {
		return false
	}
	return !isHidden(rel)
}

// relPath resolves path relative to the case root with forward slashes.
// ok is false for paths outside the tree.
func (w *Watcher) relPath(path string) (string, bool) {
	rel, err := filepath.Rel(w.cfg.CaseDir, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// isHidden reports whether any component of the relative path starts
// with a dot.
func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == "." || part == ".." || part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
