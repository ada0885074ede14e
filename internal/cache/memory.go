package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore is the L1, in-process backend: an LRU-bounded map
// keeping the most recently used entries, for the Lite profile or as
// the fast-path tier in front of a distributed L2. Grounded on
// internal/storage/memory/memory_storage.go's RWMutex-guarded map
// shape, swapping the unbounded map for a bounded LRU cache since
// analysis results accumulate per-extension-per-analyzer across a run
// and should not grow without limit in long-lived processes.
type MemoryStore struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, Entry]
}

// NewMemoryStore builds an L1 store holding at most capacity entries.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	c, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: c}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache.Get(key)
	return entry, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(key, entry)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
