package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

func timelineFixture() []domain.TimelineEvent {
	logonID := int64(4624)
	return []domain.TimelineEvent{
		{
			Timestamp:   "2024-03-02T12:00:00Z",
			Source:      domain.SourceEvtx,
			Channel:     "Security",
			Computer:    "WS01",
			EventID:     &logonID,
			Description: "TargetUserName=jdoe LogonType=10",
		},
		{
			Timestamp:   domain.UnknownTime,
			Source:      domain.SourceRegistry,
			Channel:     "NTUSER.DAT",
			Description: "key_path=Software\\Run value_name=updater",
		},
	}
}

func TestTimelineCmd_Use(t *testing.T) {
	assert.Equal(t, "timeline [case]", timelineCmd.Use)
}

func TestTimelineCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"timeline"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestTimelineCmd_BuildsFromDirectory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	timelineService = &mockTimeline{events: timelineFixture()}

	dir := t.TempDir()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"timeline", dir})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Timeline for "+dir)
	assert.Contains(t, buf.String(), "2024-03-02T12:00:00Z")
	assert.Contains(t, buf.String(), "[evtx] Security@WS01 #4624")
	assert.Contains(t, buf.String(), domain.UnknownTime)

	mock := timelineService.(*mockTimeline)
	assert.Equal(t, dir, mock.lastDir)
	assert.Equal(t, domain.DefaultTimelineLimit, mock.lastOpts.Limit)
	assert.True(t, mock.lastOpts.Descending)
}

func TestTimelineCmd_AscAndLimit(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	timelineService = &mockTimeline{events: timelineFixture()}

	dir := t.TempDir()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"timeline", "--asc", "--limit", "50", dir})
	defer func() {
		rootCmd.SetArgs(nil)
		timelineAsc = false
		timelineLimit = domain.DefaultTimelineLimit
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	mock := timelineService.(*mockTimeline)
	assert.Equal(t, 50, mock.lastOpts.Limit)
	assert.False(t, mock.lastOpts.Descending)
}

func TestTimelineCmd_ResolvesCaseID(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	caseStore = &mockCaseStore{record: &domain.CaseRecord{ID: "acme-007", Dir: dir}}
	timelineService = &mockTimeline{events: timelineFixture()}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"timeline", "acme-007"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	mock := timelineService.(*mockTimeline)
	assert.Equal(t, dir, mock.lastDir)
}

func TestTimelineCmd_UnknownCase(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"timeline", "nonexistent-id"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no directory or registered case")
}

func TestTimelineCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	timelineService = &mockTimeline{events: timelineFixture()}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"timeline", "--json", t.TempDir()})
	defer func() {
		rootCmd.SetArgs(nil)
		timelineJSON = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "\"timestamp\"")
	assert.Contains(t, buf.String(), "\"event_id\": 4624")
}

func TestTimelineCmd_EmptyTimeline(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"timeline", t.TempDir()})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No events found")
}

func TestFormatTimelineEvent(t *testing.T) {
	logonID := int64(4624)

	tests := []struct {
		name  string
		event domain.TimelineEvent
		want  string
	}{
		{
			name: "event log record",
			event: domain.TimelineEvent{
				Source:      domain.SourceEvtx,
				Channel:     "Security",
				Computer:    "WS01",
				EventID:     &logonID,
				Description: "LogonType=10",
			},
			want: "[evtx] Security@WS01 #4624 LogonType=10",
		},
		{
			name: "registry record has no event id",
			event: domain.TimelineEvent{
				Source:      domain.SourceRegistry,
				Channel:     "SYSTEM",
				Description: "value=Start",
			},
			want: "[registry] SYSTEM value=Start",
		},
		{
			name:  "bare source",
			event: domain.TimelineEvent{Source: domain.SourceEvtx},
			want:  "[evtx]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatTimelineEvent(&tt.event))
		})
	}
}
