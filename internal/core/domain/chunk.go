package domain

import "strings"

// Source identifies the artifact family a record or chunk came from.
type Source string

// Known artifact sources.
const (
	// SourceEvtx marks records derived from Windows event logs.
	SourceEvtx Source = "evtx"

	// SourceRegistry marks records derived from registry hives.
	SourceRegistry Source = "registry"

	// SourceFile marks plain text files read directly from the case tree.
	SourceFile Source = "file"
)

// Case tree layout. Ingestion writes generated output to fixed
// locations inside the case directory; walkers and watchers must skip
// them or they would feed on their own output.
const (
	// ArtifactsDirName is the case subdirectory holding generated
	// derivative files.
	ArtifactsDirName = "artifacts"
)

// SummaryFileName returns the name of the per-source summary file
// written at the case root during ingestion.
func SummaryFileName(source Source) string {
	return string(source) + "_summaries.jsonl"
}

// IsSummaryFileName reports whether name is one of the generated
// summary files.
func IsSummaryFileName(name string) bool {
	return name == SummaryFileName(SourceEvtx) || name == SummaryFileName(SourceRegistry)
}

// Extension sets used to classify files during the corpus walk.
// Extensions are lower-case and include the leading dot.
var (
	// EventLogExtensions are raw Windows event log artifacts.
	EventLogExtensions = map[string]bool{
		".evtx": true,
		".evt":  true,
	}

	// RegistryExtensions are raw registry hive artifacts and exports.
	RegistryExtensions = map[string]bool{
		".dat":  true,
		".hiv":  true,
		".hive": true,
		".reg":  true,
	}

	// TextExtensions are files read directly as plain text.
	TextExtensions = map[string]bool{
		".txt":  true,
		".log":  true,
		".json": true,
		".csv":  true,
		".md":   true,
	}
)

// ClassifySource maps a file extension to the artifact source that
// handles it. Returns false for extensions the pipeline ignores.
func ClassifySource(ext string) (Source, bool) {
	ext = strings.ToLower(ext)
	switch {
	case EventLogExtensions[ext]:
		return SourceEvtx, true
	case RegistryExtensions[ext]:
		return SourceRegistry, true
	case TextExtensions[ext]:
		return SourceFile, true
	default:
		return "", false
	}
}

// TextChunk is one unit of text submitted for indexing, tagged with
// where it came from. Chunks live only for the duration of an
// ingestion pass; the vector store is their durable home.
type TextChunk struct {
	// Text is the chunk content. Always non-empty and trimmed.
	Text string

	// Source is the artifact family the text was extracted from.
	Source Source

	// CaseID identifies the owning case.
	CaseID string

	// FilePath is the case-relative path of the originating artifact.
	FilePath string
}

// ChunkMetadata is the provenance subset of a TextChunk stored
// alongside its vector and returned with search hits.
type ChunkMetadata struct {
	Source string `json:"source"`
	CaseID string `json:"case_id"`
	File   string `json:"file"`
}

// NewTextChunk builds a TextChunk from raw extracted text.
// The text is whitespace-trimmed first; ok is false when nothing
// remains, in which case the chunk must be discarded.
func NewTextChunk(text string, source Source, caseID, filePath string) (TextChunk, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TextChunk{}, false
	}
	return TextChunk{
		Text:     text,
		Source:   source,
		CaseID:   caseID,
		FilePath: filePath,
	}, true
}

// Metadata returns the chunk's provenance metadata.
func (c TextChunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		Source: string(c.Source),
		CaseID: c.CaseID,
		File:   c.FilePath,
	}
}
