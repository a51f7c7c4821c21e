package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	dErrors "complyflow/pkg/domain-errors"
)

// InMemoryStore is the non-persistent ItemStore used in tests and local
// development.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]Item
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[string]Item)}
}

func (s *InMemoryStore) Create(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return dErrors.Newf(dErrors.CodePersistence, "item %s already exists", item.ID)
	}
	s.items[item.ID] = item
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, dErrors.Newf(dErrors.CodeNotFound, "item %s not found", id)
	}
	return item, nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, item := range s.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.Module != "" && item.Module != filter.Module {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, to Status, expectedVersion int64) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, dErrors.Newf(dErrors.CodeNotFound, "item %s not found", id)
	}
	if item.Version != expectedVersion {
		return Item{}, dErrors.Newf(dErrors.CodeStaleState,
			"item %s version %d does not match expected %d", id, item.Version, expectedVersion)
	}
	item.Status = to
	item.Version++
	item.UpdatedAt = time.Now()
	s.items[id] = item
	return item, nil
}
