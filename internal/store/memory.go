package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"signalscan/internal/domain/repository"
)

// MemoryStore is an in-process DocumentStore used when Redis is disabled and
// in tests. Values round-trip through JSON so behavior matches RedisStore.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key string, dest any) error {
	s.mu.RLock()
	b, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (s *MemoryStore) Save(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	s.mu.Lock()
	s.docs[key] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
