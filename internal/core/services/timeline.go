package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driving"
	"github.com/arclight-labs/casetrail/internal/logger"
)

// Ensure TimelineService implements the driving port interface.
var _ driving.TimelineBuilder = (*TimelineService)(nil)

// TimelineService fuses the JSONL derivatives of a case into a single
// chronological view. It reads derivatives straight from disk and
// needs no driven port.
type TimelineService struct {
	profiles map[domain.Source]domain.FieldProfile
}

// NewTimelineService creates a timeline service with the built-in
// field profiles.
func NewTimelineService() *TimelineService {
	return &TimelineService{profiles: domain.DefaultProfiles()}
}

// SetProfiles overrides individual field profiles. Sources not named
// keep their defaults.
func (s *TimelineService) SetProfiles(profiles map[domain.Source]domain.FieldProfile) {
	for source, p := range profiles {
		s.profiles[source] = p
	}
}

// fusedEvent pairs an outward timeline event with the sort key it was
// derived from. The key never leaves this package.
type fusedEvent struct {
	at      time.Time
	unknown bool
	event   domain.TimelineEvent
}

// Build reads the event-log and registry derivatives under caseDir
// and returns up to opts.Limit fused events. Events with a parseable
// timestamp are sorted by opts.Descending; events without one always
// trail the sorted block in stable insertion order.
func (s *TimelineService) Build(ctx context.Context, caseDir string, opts domain.TimelineOptions) ([]domain.TimelineEvent, error) {
	if strings.TrimSpace(caseDir) == "" {
		return nil, fmt.Errorf("%w: case directory required", domain.ErrInvalidInput)
	}
	limit := domain.ClampTimelineLimit(opts.Limit)

	logger.Section("Timeline Fusion")
	logger.Info("Case directory: %s (limit %d)", caseDir, limit)

	var evtxEvents, registryEvents []fusedEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		evtxEvents, err = s.loadSource(gctx, caseDir, domain.SourceEvtx)
		return err
	})
	g.Go(func() error {
		var err error
		registryEvents, err = s.loadSource(gctx, caseDir, domain.SourceRegistry)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Concatenate in fixed source order so unknown-time events keep a
	// stable position from run to run.
	events := make([]fusedEvent, 0, len(evtxEvents)+len(registryEvents))
	events = append(events, evtxEvents...)
	events = append(events, registryEvents...)

	known := make([]fusedEvent, 0, len(events))
	var unknown []fusedEvent
	for _, e := range events {
		if e.unknown {
			unknown = append(unknown, e)
		} else {
			known = append(known, e)
		}
	}

	sort.SliceStable(known, func(i, j int) bool {
		if opts.Descending {
			return known[i].at.After(known[j].at)
		}
		return known[i].at.Before(known[j].at)
	})

	ordered := append(known, unknown...)
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	out := make([]domain.TimelineEvent, len(ordered))
	for i, e := range ordered {
		out[i] = e.event
	}
	logger.Info("Timeline: %d events (%d without timestamps)", len(out), len(unknown))
	return out, nil
}

// loadSource reads every .jsonl derivative for a source in filename
// order. A missing derivative directory means the source produced no
// events. A broken file is skipped, not fatal.
func (s *TimelineService) loadSource(ctx context.Context, caseDir string, source domain.Source) ([]fusedEvent, error) {
	dir := filepath.Join(caseDir, domain.ArtifactsDirName, string(source))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s derivatives: %w", source, err)
	}

	profile := s.profiles[source]
	var events []fusedEvent
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		fileEvents, err := s.readDerivative(path, source, profile)
		events = append(events, fileEvents...)
		if err != nil {
			logger.Warn("Derivative %s truncated: %v", entry.Name(), err)
		}
	}
	return events, nil
}

// readDerivative parses one JSONL derivative file. Malformed lines
// are skipped; events parsed before a read error are still returned.
func (s *TimelineService) readDerivative(path string, source domain.Source, profile domain.FieldProfile) ([]fusedEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []fusedEvent
	malformed := 0
	reader := bufio.NewReader(f)
	for {
		line, readErr := reader.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			event, ok := s.parseLine([]byte(trimmed), source, profile)
			if ok {
				events = append(events, event)
			} else {
				malformed++
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return events, readErr
		}
	}
	if malformed > 0 {
		logger.Debug("%s: skipped %d malformed lines", filepath.Base(path), malformed)
	}
	return events, nil
}

func (s *TimelineService) parseLine(line []byte, source domain.Source, profile domain.FieldProfile) (fusedEvent, bool) {
	switch source {
	case domain.SourceEvtx:
		return parseEvtxLine(line, profile)
	case domain.SourceRegistry:
		return parseRegistryLine(line, profile)
	default:
		return fusedEvent{}, false
	}
}

// evtxRecord is the derivative schema for one event-log event.
type evtxRecord struct {
	Timestamp string         `json:"timestamp"`
	EventID   *int64         `json:"event_id"`
	Channel   string         `json:"channel"`
	Computer  string         `json:"computer"`
	Data      map[string]any `json:"data"`
}

func parseEvtxLine(line []byte, profile domain.FieldProfile) (fusedEvent, bool) {
	var rec evtxRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return fusedEvent{}, false
	}
	at, known := domain.NormalizeTimestamp(rec.Timestamp)
	return fusedEvent{
		at:      at,
		unknown: !known,
		event: domain.TimelineEvent{
			Timestamp:   renderTimestamp(at, known),
			Source:      domain.SourceEvtx,
			Channel:     rec.Channel,
			Computer:    rec.Computer,
			EventID:     rec.EventID,
			Description: domain.DescribeFields(rec.Data, profile),
		},
	}, true
}

// parseRegistryLine fuses one registry derivative record. Registry
// events carry the hive in the channel position and have no event id.
func parseRegistryLine(line []byte, profile domain.FieldProfile) (fusedEvent, bool) {
	var rec map[string]any
	if err := json.Unmarshal(line, &rec); err != nil {
		return fusedEvent{}, false
	}
	lastWrite, _ := rec["last_write"].(string)
	at, known := domain.NormalizeTimestamp(lastWrite)
	hive, _ := rec["hive"].(string)

	data := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == "last_write" {
			continue
		}
		data[k] = v
	}

	return fusedEvent{
		at:      at,
		unknown: !known,
		event: domain.TimelineEvent{
			Timestamp:   renderTimestamp(at, known),
			Source:      domain.SourceRegistry,
			Channel:     hive,
			Description: domain.DescribeFields(data, profile),
		},
	}, true
}

// renderTimestamp formats a normalized instant for display, or the
// unknown-time marker when the source offered nothing parseable.
func renderTimestamp(at time.Time, known bool) string {
	if !known {
		return domain.UnknownTime
	}
	return at.Format(time.RFC3339Nano)
}
