package driving

import "context"

// CorpusIngestor builds and indexes the text corpus for one case.
type CorpusIngestor interface {
	// BuildAndIndex walks caseDir, extracts text chunks from every
	// indexable artifact, and submits them to the case's vector
	// collection. Returns the total chunk count; zero means nothing
	// indexable was found, which is distinct from an error.
	BuildAndIndex(ctx context.Context, caseDir, caseID string) (int, error)
}
