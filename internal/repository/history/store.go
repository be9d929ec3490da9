// Package history keeps a bounded per-session window of recent
// question/answer exchanges used to ground follow-up questions.
package history

import (
	"context"

	"github.com/sai-aakash/ragserve/internal/domain"
)

// Store holds conversation windows keyed by session ID.
// Implementations bound each window to a fixed capacity: appending to a
// full window evicts the oldest exchange.
type Store interface {
	// Window returns the session's exchanges, oldest first.
	// An unknown session yields an empty window, not an error.
	Window(ctx context.Context, sessionID string) ([]domain.Exchange, error)
	// Append records one exchange, evicting the oldest if the window is full.
	Append(ctx context.Context, sessionID string, ex domain.Exchange) error
}
