package domain

// Metadata identifies the origin of a document or chunk.
type Metadata struct {
	Source string
	Page   int
}

// Document is one page of extracted PDF text. Immutable after ingestion.
type Document struct {
	Text     string
	Metadata Metadata
}

// Chunk is a bounded window of a document's text, the unit of retrieval.
// Metadata is inherited from the parent document unchanged.
type Chunk struct {
	Text     string
	Metadata Metadata
}

// ScoredChunk is a single retrieval hit with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}
