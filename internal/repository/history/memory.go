package history

import (
	"context"
	"sync"

	"github.com/sai-aakash/ragserve/internal/domain"
)

// MemoryStore is the default in-process history backend.
// Windows live for the lifetime of the server process.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	windows  map[string][]domain.Exchange
}

// NewMemoryStore creates an in-memory store. Capacity below 1 disables
// history: Append becomes a no-op and Window always returns empty.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		capacity: capacity,
		windows:  make(map[string][]domain.Exchange),
	}
}

func (s *MemoryStore) Window(_ context.Context, sessionID string) ([]domain.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.windows[sessionID]
	out := make([]domain.Exchange, len(window))
	copy(out, window)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, ex domain.Exchange) error {
	if s.capacity < 1 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	window := append(s.windows[sessionID], ex)
	if len(window) > s.capacity {
		window = window[len(window)-s.capacity:]
	}
	s.windows[sessionID] = window
	return nil
}
