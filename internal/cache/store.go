package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MemoryStore is a Store backed by an in-process LRU. Values are kept as
// JSON so callers never share memory with a cached payload.
type MemoryStore struct {
	lru *LRUCache[[]byte]
}

func NewMemoryStore(maxSize int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: NewLRUCache[[]byte](maxSize, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := s.lru.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache.Get: %w", err)
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache.Set: %w", err)
	}
	s.lru.Set(key, raw)
	return nil
}

func (s *MemoryStore) Purge(context.Context) error {
	s.lru.Purge()
	return nil
}

// CleanExpired lets a Manager sweep the underlying LRU.
func (s *MemoryStore) CleanExpired() int { return s.lru.CleanExpired() }

func (s *MemoryStore) Size() int { return s.lru.Size() }
