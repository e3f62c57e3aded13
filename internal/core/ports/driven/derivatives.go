package driven

import (
	"context"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// DerivativeResult is what a parser reports after processing one raw
// artifact.
type DerivativeResult struct {
	// EventsCount is how many records the parser extracted. Zero means
	// nothing to index for this artifact, which is not an error.
	EventsCount int

	// TxtPath is the absolute path of the text rendering the parser
	// wrote, one line per record. A line-oriented JSON companion sits
	// alongside it for the timeline.
	TxtPath string
}

// DerivativeGenerator runs an external format-specific parser over one
// raw artifact, writing derivative files under the case's artifacts
// directory. The parser's internals (event log and hive formats) are
// outside this system.
type DerivativeGenerator interface {
	// Source is the artifact family this generator handles.
	Source() domain.Source

	// Generate parses the artifact at path and writes its derivatives
	// under caseDir. Failures are per-artifact: the caller logs and
	// skips, never aborts the walk.
	Generate(ctx context.Context, path, caseDir string) (*DerivativeResult, error)
}
