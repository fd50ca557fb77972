// Package memory holds process-local stores for tests and one-off runs.
package memory

import (
	"context"
	"slices"
	"sync"

	"likesync/internal/domain"
)

// Cache is an in-memory LocalCache.
type Cache struct {
	mu     sync.RWMutex
	values map[string][]byte
	writes int
}

func NewCache() *Cache {
	return &Cache{values: make(map[string][]byte)}
}

func (c *Cache) Get(_ context.Context, keys []string) (map[string][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := c.values[k]; ok {
			out[k] = slices.Clone(v)
		}
	}
	return out, nil
}

func (c *Cache) Set(_ context.Context, values map[string][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range values {
		c.values[k] = slices.Clone(v)
	}
	c.writes++
	return nil
}

// Writes counts Set calls.
func (c *Cache) Writes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writes
}

// UsageStore is an in-memory service.UsageStore.
type UsageStore struct {
	mu      sync.Mutex
	records map[string]domain.UsageRecord
}

func NewUsageStore() *UsageStore {
	return &UsageStore{records: make(map[string]domain.UsageRecord)}
}

func (s *UsageStore) Get(_ context.Context, identity string) (*domain.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[identity]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *UsageStore) Save(_ context.Context, record *domain.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Identity] = *record
	return nil
}
