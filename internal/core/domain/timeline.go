package domain

// UnknownTime is the timestamp value rendered for events whose source
// timestamp could not be determined.
const UnknownTime = "UNKNOWN_TIME"

// Timeline limit bounds. An explicit limit outside [MinTimelineLimit,
// MaxTimelineLimit] is clamped; DefaultTimelineLimit is what the CLI
// and MCP surfaces use when the caller gives none.
const (
	MinTimelineLimit     = 1
	DefaultTimelineLimit = 200
	MaxTimelineLimit     = 2000
)

// TimelineEvent is one row of the fused case timeline. Events are
// recomputed from derivative files on every request and never
// persisted.
type TimelineEvent struct {
	// Timestamp is the event instant in RFC 3339 UTC form, or
	// UnknownTime when the source carried no usable timestamp.
	Timestamp string `json:"timestamp"`

	// Source is the artifact family the event came from.
	Source Source `json:"source"`

	// Channel is the event log channel, or the hive name for
	// registry events.
	Channel string `json:"channel,omitempty"`

	// Computer is the reporting host, when the source records one.
	Computer string `json:"computer,omitempty"`

	// EventID is the event log record type. Absent for registry events.
	EventID *int64 `json:"event_id,omitempty"`

	// Description is a bounded name=value summary of the record.
	Description string `json:"description"`
}

// TimelineOptions controls timeline assembly.
type TimelineOptions struct {
	// Limit caps the number of returned events. Clamped to
	// [MinTimelineLimit, MaxTimelineLimit].
	Limit int

	// Descending orders known-time events most recent first.
	// Unknown-time events sit at the tail either way.
	Descending bool
}

// DefaultTimelineOptions returns the standard timeline view:
// 200 events, most recent first.
func DefaultTimelineOptions() TimelineOptions {
	return TimelineOptions{
		Limit:      DefaultTimelineLimit,
		Descending: true,
	}
}

// ClampTimelineLimit forces a requested limit into the supported
// range.
func ClampTimelineLimit(limit int) int {
	if limit < MinTimelineLimit {
		return MinTimelineLimit
	}
	if limit > MaxTimelineLimit {
		return MaxTimelineLimit
	}
	return limit
}
