package ingest

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/sai-aakash/ragserve/internal/domain"
)

// chunkSeparators is the boundary preference order: paragraph, line, word,
// then a hard character cut.
var chunkSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits documents into overlapping character windows, preferring to
// break at paragraph, line, and word boundaries.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. Requires size > overlap >= 0.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap cannot be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split windows every document's text into chunks. Each chunk inherits the
// parent document's metadata unchanged. A document shorter than the chunk
// size yields exactly one chunk; empty pages yield none.
func (c *Chunker) Split(docs []domain.Document) ([]domain.Chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.size),
		textsplitter.WithChunkOverlap(c.overlap),
		textsplitter.WithSeparators(chunkSeparators),
	)

	var chunks []domain.Chunk
	for _, doc := range docs {
		segments, err := splitter.SplitText(doc.Text)
		if err != nil {
			return nil, fmt.Errorf("split document %s page %d: %w",
				doc.Metadata.Source, doc.Metadata.Page, err)
		}
		for _, segment := range segments {
			text := strings.TrimSpace(segment)
			if text == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				Text:     text,
				Metadata: doc.Metadata,
			})
		}
	}
	return chunks, nil
}
