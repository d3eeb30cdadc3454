// Package popularity counts how often quick suggestions are used.
package popularity

import (
	"context"
	"sort"
	"sync"
)

// Store is a small key counter.
type Store interface {
	Increment(ctx context.Context, key string) error
	// TopN returns up to n keys, highest count first.
	TopN(ctx context.Context, n int) ([]string, error)
}

// MemoryStore keeps counts in process memory. Ties keep first-seen order.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int
	order  map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts: make(map[string]int),
		order:  make(map[string]int),
	}
}

func (s *MemoryStore) Increment(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.order[key]; !ok {
		s.order[key] = len(s.order)
	}
	s.counts[key]++
	return nil
}

func (s *MemoryStore) TopN(ctx context.Context, n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.counts))
	for k := range s.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if s.counts[keys[i]] != s.counts[keys[j]] {
			return s.counts[keys[i]] > s.counts[keys[j]]
		}
		return s.order[keys[i]] < s.order[keys[j]]
	})

	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys, nil
}
