// Package domain defines the core business entities for Casetrail.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - TextChunk: A unit of extracted artifact text with provenance
//   - TimelineEvent: One row of the fused case timeline
//   - SearchHit: A ranked match from a case's vector collection
//   - CaseRecord: A registered case and its ingestion bookkeeping
//
// It also holds the two leaf functions the pipeline is built on:
// NormalizeTimestamp (total timestamp parsing) and DescribeFields
// (bounded event summaries).
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
