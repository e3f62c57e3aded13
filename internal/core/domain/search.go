package domain

// SearchHit is a single ranked match from a case's vector collection.
type SearchHit struct {
	// ID is the stored embedding record id.
	ID string `json:"id"`

	// Distance is the cosine distance between the query and this hit.
	// Lower means more similar. This is a dissimilarity measure, not a
	// score; callers must not invert or rescale it.
	Distance float64 `json:"distance"`

	// Text is the original chunk text.
	Text string `json:"text"`

	// Metadata is the chunk's provenance.
	Metadata ChunkMetadata `json:"metadata"`
}
