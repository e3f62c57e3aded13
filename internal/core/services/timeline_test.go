package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// --- Test helpers ---

func writeDerivative(t *testing.T, caseDir string, source domain.Source, name string, lines []string) {
	t.Helper()
	dir := filepath.Join(caseDir, "artifacts", string(source))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func buildTimeline(t *testing.T, caseDir string, opts domain.TimelineOptions) []domain.TimelineEvent {
	t.Helper()
	events, err := NewTimelineService().Build(context.Background(), caseDir, opts)
	require.NoError(t, err)
	return events
}

// --- Tests ---

func TestNewTimelineService(t *testing.T) {
	service := NewTimelineService()

	require.NotNil(t, service)
	assert.Contains(t, service.profiles, domain.SourceEvtx)
	assert.Contains(t, service.profiles, domain.SourceRegistry)
}

func TestTimelineService_Build_EmptyCase(t *testing.T) {
	events := buildTimeline(t, t.TempDir(), domain.DefaultTimelineOptions())

	assert.Empty(t, events, "missing derivative dirs mean zero events, not an error")
}

func TestTimelineService_Build_InvalidInput(t *testing.T) {
	_, err := NewTimelineService().Build(context.Background(), "  ", domain.DefaultTimelineOptions())

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTimelineService_Build_Ordering(t *testing.T) {
	caseDir := t.TempDir()
	writeDerivative(t, caseDir, domain.SourceEvtx, "security.jsonl", []string{
		`{"timestamp":"2024-01-02T10:00:00Z","event_id":4624,"channel":"Security","computer":"WS01","data":{"TargetUserName":"alice"}}`,
		`{"timestamp":"2024-01-02T12:00:00Z","event_id":4688,"channel":"Security","computer":"WS01","data":{"ProcessName":"cmd.exe"}}`,
		`{"timestamp":"2024-01-02T11:00:00Z","event_id":4672,"channel":"Security","computer":"WS01","data":{"SubjectUserName":"alice"}}`,
	})

	t.Run("descending", func(t *testing.T) {
		events := buildTimeline(t, caseDir, domain.TimelineOptions{Limit: 10, Descending: true})

		require.Len(t, events, 3)
		assert.Equal(t, "2024-01-02T12:00:00Z", events[0].Timestamp)
		assert.Equal(t, "2024-01-02T11:00:00Z", events[1].Timestamp)
		assert.Equal(t, "2024-01-02T10:00:00Z", events[2].Timestamp)
	})

	t.Run("ascending", func(t *testing.T) {
		events := buildTimeline(t, caseDir, domain.TimelineOptions{Limit: 10, Descending: false})

		require.Len(t, events, 3)
		assert.Equal(t, "2024-01-02T10:00:00Z", events[0].Timestamp)
		assert.Equal(t, "2024-01-02T12:00:00Z", events[2].Timestamp)
	})
}

func TestTimelineService_Build_UnknownTimeTrails(t *testing.T) {
	caseDir := t.TempDir()
	writeDerivative(t, caseDir, domain.SourceEvtx, "security.jsonl", []string{
		`{"timestamp":"2024-01-02T10:00:00Z","event_id":4624,"channel":"Security","computer":"WS01","data":{}}`,
		`{"timestamp":"not a time","event_id":1102,"channel":"Security","computer":"WS01","data":{}}`,
		`{"timestamp":"2024-01-02T11:00:00Z","event_id":4672,"channel":"Security","computer":"WS01","data":{}}`,
	})
	writeDerivative(t, caseDir, domain.SourceRegistry, "ntuser.jsonl", []string{
		`{"hive":"NTUSER.DAT","category":"run_keys","key_path":"Software\\Run","value_name":"updater","value":"evil.exe"}`,
	})

	for _, descending := range []bool{true, false} {
		name := "ascending"
		if descending {
			name = "descending"
		}
		t.Run(name, func(t *testing.T) {
			events := buildTimeline(t, caseDir, domain.TimelineOptions{Limit: 10, Descending: descending})

			require.Len(t, events, 4)
			// Unknown-time events trail the sorted block in insertion
			// order regardless of sort direction.
			assert.NotEqual(t, domain.UnknownTime, events[0].Timestamp)
			assert.NotEqual(t, domain.UnknownTime, events[1].Timestamp)
			assert.Equal(t, domain.UnknownTime, events[2].Timestamp)
			assert.Equal(t, domain.SourceEvtx, events[2].Source)
			assert.Equal(t, domain.UnknownTime, events[3].Timestamp)
			assert.Equal(t, domain.SourceRegistry, events[3].Source)
		})
	}
}

func TestTimelineService_Build_Limit(t *testing.T) {
	caseDir := t.TempDir()
	lines := []string{
		`{"timestamp":"2024-01-02T10:00:00Z","event_id":1,"channel":"Security","computer":"WS01","data":{}}`,
		`{"timestamp":"2024-01-02T11:00:00Z","event_id":2,"channel":"Security","computer":"WS01","data":{}}`,
		`{"timestamp":"2024-01-02T12:00:00Z","event_id":3,"channel":"Security","computer":"WS01","data":{}}`,
		`{"timestamp":"2024-01-02T13:00:00Z","event_id":4,"channel":"Security","computer":"WS01","data":{}}`,
		`{"timestamp":"2024-01-02T14:00:00Z","event_id":5,"channel":"Security","computer":"WS01","data":{}}`,
	}
	writeDerivative(t, caseDir, domain.SourceEvtx, "security.jsonl", lines)

	t.Run("truncates to limit", func(t *testing.T) {
		events := buildTimeline(t, caseDir, domain.TimelineOptions{Limit: 2, Descending: true})

		require.Len(t, events, 2)
		assert.Equal(t, "2024-01-02T14:00:00Z", events[0].Timestamp)
		assert.Equal(t, "2024-01-02T13:00:00Z", events[1].Timestamp)
	})

	t.Run("zero limit clamps to one", func(t *testing.T) {
		events := buildTimeline(t, caseDir, domain.TimelineOptions{Limit: 0, Descending: true})

		assert.Len(t, events, 1)
	})

	t.Run("oversized limit returns everything", func(t *testing.T) {
		events := buildTimeline(t, caseDir, domain.TimelineOptions{Limit: 2000, Descending: true})

		assert.Len(t, events, 5)
	})
}

func TestTimelineService_Build_MalformedLinesSkipped(t *testing.T) {
	caseDir := t.TempDir()
	writeDerivative(t, caseDir, domain.SourceEvtx, "security.jsonl", []string{
		`{"timestamp":"2024-01-02T10:00:00Z","event_id":4624,"channel":"Security","computer":"WS01","data":{}}`,
		`{not json at all`,
		``,
		`{"timestamp":"2024-01-02T11:00:00Z","event_id":4672,"channel":"Security","computer":"WS01","data":{}}`,
	})

	events := buildTimeline(t, caseDir, domain.TimelineOptions{Limit: 10, Descending: false})

	assert.Len(t, events, 2)
}

func TestTimelineService_Build_RegistryEvents(t *testing.T) {
	caseDir := t.TempDir()
	writeDerivative(t, caseDir, domain.SourceRegistry, "software.jsonl", []string{
		`{"hive":"SOFTWARE","category":"services","key_path":"SYSTEM\\Services\\evilsvc","value_name":"ImagePath","value":"C:\\evil.exe","last_write":"2024-01-02T09:30:00Z"}`,
	})

	events := buildTimeline(t, caseDir, domain.DefaultTimelineOptions())

	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, domain.SourceRegistry, e.Source)
	assert.Equal(t, "SOFTWARE", e.Channel, "registry events carry the hive in the channel position")
	assert.Nil(t, e.EventID)
	assert.Equal(t, "2024-01-02T09:30:00Z", e.Timestamp)
	assert.Contains(t, e.Description, "key_path=SYSTEM\\Services\\evilsvc")
	assert.Contains(t, e.Description, "value_name=ImagePath")
	assert.NotContains(t, e.Description, "last_write")
}

func TestTimelineService_Build_EvtxEventFields(t *testing.T) {
	caseDir := t.TempDir()
	writeDerivative(t, caseDir, domain.SourceEvtx, "security.jsonl", []string{
		`{"timestamp":"2024-01-02T10:00:00Z","event_id":4624,"channel":"Security","computer":"WS01","data":{"TargetUserName":"alice","IpAddress":"10.0.0.5","LogonType":3}}`,
	})

	events := buildTimeline(t, caseDir, domain.DefaultTimelineOptions())

	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, domain.SourceEvtx, e.Source)
	assert.Equal(t, "Security", e.Channel)
	assert.Equal(t, "WS01", e.Computer)
	require.NotNil(t, e.EventID)
	assert.Equal(t, int64(4624), *e.EventID)
	assert.Equal(t, "TargetUserName=alice IpAddress=10.0.0.5 LogonType=3", e.Description)
}

func TestTimelineService_Build_NormalizesOffsetsToUTC(t *testing.T) {
	caseDir := t.TempDir()
	writeDerivative(t, caseDir, domain.SourceEvtx, "security.jsonl", []string{
		`{"timestamp":"2024-03-01T10:00:00+02:00","event_id":1,"channel":"Security","computer":"WS01","data":{}}`,
	})

	events := buildTimeline(t, caseDir, domain.DefaultTimelineOptions())

	require.Len(t, events, 1)
	assert.Equal(t, "2024-03-01T08:00:00Z", events[0].Timestamp)
}

func TestTimelineService_Build_FusesBothSources(t *testing.T) {
	caseDir := t.TempDir()
	writeDerivative(t, caseDir, domain.SourceEvtx, "security.jsonl", []string{
		`{"timestamp":"2024-01-02T10:00:00Z","event_id":4624,"channel":"Security","computer":"WS01","data":{"TargetUserName":"alice"}}`,
	})
	writeDerivative(t, caseDir, domain.SourceRegistry, "ntuser.jsonl", []string{
		`{"hive":"NTUSER.DAT","category":"run_keys","key_path":"Software\\Run","value_name":"updater","value":"evil.exe"}`,
	})

	events := buildTimeline(t, caseDir, domain.DefaultTimelineOptions())

	require.Len(t, events, 2)
	assert.Equal(t, domain.SourceEvtx, events[0].Source)
	assert.Equal(t, "2024-01-02T10:00:00Z", events[0].Timestamp)
	assert.Equal(t, domain.SourceRegistry, events[1].Source)
	assert.Equal(t, domain.UnknownTime, events[1].Timestamp, "registry record without last_write trails the timeline")
}

func TestTimelineService_Build_IgnoresNonDerivativeFiles(t *testing.T) {
	caseDir := t.TempDir()
	writeDerivative(t, caseDir, domain.SourceEvtx, "security.jsonl", []string{
		`{"timestamp":"2024-01-02T10:00:00Z","event_id":1,"channel":"Security","computer":"WS01","data":{}}`,
	})
	// Companion text derivative sits next to the JSONL and is not an
	// event stream.
	dir := filepath.Join(caseDir, "artifacts", "evtx")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "security.evtx.txt"), []byte("line\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))

	events := buildTimeline(t, caseDir, domain.DefaultTimelineOptions())

	assert.Len(t, events, 1)
}

func TestTimelineService_Build_FilesReadInNameOrder(t *testing.T) {
	caseDir := t.TempDir()
	// Both events share a timestamp; stable sort keeps file order.
	writeDerivative(t, caseDir, domain.SourceEvtx, "a.jsonl", []string{
		`{"timestamp":"2024-01-02T10:00:00Z","event_id":1,"channel":"First","computer":"WS01","data":{}}`,
	})
	writeDerivative(t, caseDir, domain.SourceEvtx, "b.jsonl", []string{
		`{"timestamp":"2024-01-02T10:00:00Z","event_id":2,"channel":"Second","computer":"WS01","data":{}}`,
	})

	events := buildTimeline(t, caseDir, domain.TimelineOptions{Limit: 10, Descending: false})

	require.Len(t, events, 2)
	assert.Equal(t, "First", events[0].Channel)
	assert.Equal(t, "Second", events[1].Channel)
}
