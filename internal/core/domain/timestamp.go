package domain

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order when normalizing a timestamp.
// Fractional seconds are optional in every layout. The first two use
// the ISO "T" separator, the last two the space separator that
// registry last-write exports tend to use.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// NormalizeTimestamp parses a loosely formatted timestamp string into
// a comparable UTC instant. It is total: any input, including empty
// strings and garbage, yields ok=false rather than an error or panic.
//
// A trailing "Z" zone suffix is rewritten to an explicit +00:00 offset
// before parsing. Inputs carrying an explicit offset are converted to
// UTC so every instant returned from this function sorts against every
// other without mixing offset conventions; inputs with no zone at all
// are taken as UTC.
func NormalizeTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}

	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}
