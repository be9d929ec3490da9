package answer

import (
	"context"

	"github.com/sai-aakash/ragserve/internal/domain"
)

// Retriever returns the chunks most similar to a query embedding.
type Retriever interface {
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]domain.ScoredChunk, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// History holds per-session conversation windows.
type History interface {
	Window(ctx context.Context, sessionID string) ([]domain.Exchange, error)
	Append(ctx context.Context, sessionID string, ex domain.Exchange) error
}
