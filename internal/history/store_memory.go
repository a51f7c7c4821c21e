package history

import (
	"context"
	"sync"
)

// InMemoryStore keeps history entries in memory, per workflow id, in append
// order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.WorkflowID] = append(s.entries[entry.WorkflowID], entry)
	return nil
}

func (s *InMemoryStore) ListByItem(_ context.Context, workflowID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries[workflowID]...), nil
}
