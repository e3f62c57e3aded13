package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxDescriptionLength bounds timeline event descriptions.
const MaxDescriptionLength = 400

// FieldProfile selects which record fields feed an event description.
type FieldProfile struct {
	// Interesting lists field names in priority order. Every present,
	// non-empty field is emitted as name=value.
	Interesting []string

	// FallbackCount is how many arbitrary non-empty pairs to emit when
	// no interesting field matched.
	FallbackCount int
}

// DefaultEvtxProfile covers the event data fields investigators look
// at first: identities, network addresses, processes, services.
func DefaultEvtxProfile() FieldProfile {
	return FieldProfile{
		Interesting: []string{
			"SubjectUserName",
			"SubjectDomainName",
			"TargetUserName",
			"IpAddress",
			"ProcessName",
			"CommandLine",
			"ServiceName",
			"EventType",
			"LogonType",
		},
		FallbackCount: 5,
	}
}

// DefaultRegistryProfile orders registry record fields by how much
// they narrow down what changed.
func DefaultRegistryProfile() FieldProfile {
	return FieldProfile{
		Interesting: []string{
			"key_path",
			"value_name",
			"value",
			"category",
			"hive",
		},
		FallbackCount: 6,
	}
}

// DefaultProfiles returns the per-source field profiles.
func DefaultProfiles() map[Source]FieldProfile {
	return map[Source]FieldProfile{
		SourceEvtx:     DefaultEvtxProfile(),
		SourceRegistry: DefaultRegistryProfile(),
	}
}

// DescribeFields renders a bounded one-line summary of a record's
// field map. Interesting fields are emitted as name=value in profile
// order; when none match, the first FallbackCount non-empty pairs are
// emitted in sorted key order so the output is deterministic. Pairs
// are joined with single spaces and the result is truncated to
// MaxDescriptionLength. An empty map yields an empty string. The
// function never fails.
func DescribeFields(data map[string]any, profile FieldProfile) string {
	if len(data) == 0 {
		return ""
	}

	parts := make([]string, 0, len(profile.Interesting))
	for _, name := range profile.Interesting {
		v, ok := data[name]
		if !ok || isEmptyValue(v) {
			continue
		}
		parts = append(parts, name+"="+formatFieldValue(v))
	}

	if len(parts) == 0 {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if len(parts) >= profile.FallbackCount {
				break
			}
			if isEmptyValue(data[k]) {
				continue
			}
			parts = append(parts, k+"="+formatFieldValue(data[k]))
		}
	}

	return truncateRunes(strings.Join(parts, " "), MaxDescriptionLength)
}

// isEmptyValue reports whether a field value carries no information.
// Zero and false are kept: LogonType 0 is a real logon type.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// formatFieldValue renders a field value for a description line.
// JSON numbers decode as float64; integral ones print without a
// fractional part.
func formatFieldValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// truncateRunes cuts s to at most max runes without splitting a
// multi-byte character.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
