package strategy

import (
	"context"
	"sync"

	"complyflow/internal/workflow"
)

// InMemoryCursorStore keeps round-robin cursors in process memory. Suitable
// for tests and single-instance deployments only; distributed deployments
// use the Redis store.
type InMemoryCursorStore struct {
	mu      sync.Mutex
	cursors map[workflow.ModuleType]uint64
}

func NewInMemoryCursorStore() *InMemoryCursorStore {
	return &InMemoryCursorStore{cursors: make(map[workflow.ModuleType]uint64)}
}

func (s *InMemoryCursorStore) Advance(_ context.Context, module workflow.ModuleType) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := s.cursors[module]
	s.cursors[module] = pos + 1
	return pos, nil
}
