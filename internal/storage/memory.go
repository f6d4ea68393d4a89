package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vormiaphp/vormiaquery/internal/common"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps values in a map. Expired entries are dropped lazily on
// read.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, common.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, common.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, opts ...SetOption) error {
	o := applySetOptions(opts)
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryEntry{value: v, expiresAt: o.expiresAt(s.now())}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, namespace string) error {
	prefix := namespacePrefix(namespace)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prefix == "" {
		s.items = map[string]memoryEntry{}
		return nil
	}
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			delete(s.items, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) Close() error { return nil }
