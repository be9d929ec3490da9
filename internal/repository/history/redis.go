package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sai-aakash/ragserve/internal/db"
	"github.com/sai-aakash/ragserve/internal/domain"
)

const historyKeyPrefix = "ragserve:history:"

// RedisStore persists conversation windows in a key-value store, so history
// survives restarts and is shared across replicas. Each window is a single
// JSON-encoded value refreshed with a TTL on every append.
type RedisStore struct {
	kv       db.KVStore
	capacity int
	ttl      time.Duration
}

func NewRedisStore(kv db.KVStore, capacity int, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, capacity: capacity, ttl: ttl}
}

func (s *RedisStore) Window(ctx context.Context, sessionID string) ([]domain.Exchange, error) {
	data, err := s.kv.Get(ctx, historyKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get history window: %w", err)
	}

	var window []domain.Exchange
	if err := json.Unmarshal(data, &window); err != nil {
		return nil, fmt.Errorf("decode history window: %w", err)
	}
	return window, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, ex domain.Exchange) error {
	if s.capacity < 1 {
		return nil
	}

	window, err := s.Window(ctx, sessionID)
	if err != nil {
		return err
	}

	window = append(window, ex)
	if len(window) > s.capacity {
		window = window[len(window)-s.capacity:]
	}

	data, err := json.Marshal(window)
	if err != nil {
		return fmt.Errorf("encode history window: %w", err)
	}

	key := historyKeyPrefix + sessionID
	if s.ttl > 0 {
		if err := s.kv.SetWithTTL(ctx, key, data, s.ttl); err != nil {
			return fmt.Errorf("store history window: %w", err)
		}
		return nil
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store history window: %w", err)
	}
	return nil
}
