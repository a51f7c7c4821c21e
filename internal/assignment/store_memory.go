package assignment

import (
	"context"
	"sort"
	"sync"
	"time"

	dErrors "complyflow/pkg/domain-errors"
)

// InMemoryStore is the non-persistent Store used in tests and local
// development.
type InMemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]Assignment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{assignments: make(map[string]Assignment)}
}

func (s *InMemoryStore) Create(_ context.Context, a Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assignments[a.ID]; exists {
		return dErrors.Newf(dErrors.CodePersistence, "assignment %s already exists", a.ID)
	}
	s.assignments[a.ID] = a
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return Assignment{}, dErrors.Newf(dErrors.CodeNotFound, "assignment %s not found", id)
	}
	return a, nil
}

func (s *InMemoryStore) ListByItem(_ context.Context, workflowID string) ([]Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByItem(workflowID, false), nil
}

func (s *InMemoryStore) ListActiveByItem(_ context.Context, workflowID string) ([]Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByItem(workflowID, true), nil
}

func (s *InMemoryStore) listByItem(workflowID string, activeOnly bool) []Assignment {
	var out []Assignment
	for _, a := range s.assignments {
		if a.WorkflowID != workflowID {
			continue
		}
		if activeOnly && a.Status != StatusActive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, expected Status, to Status, decision Decision) (Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return Assignment{}, dErrors.Newf(dErrors.CodeNotFound, "assignment %s not found", id)
	}
	if a.Status != expected {
		return Assignment{}, dErrors.Newf(dErrors.CodeStaleState,
			"assignment %s is %s, expected %s", id, a.Status, expected)
	}
	a.Status = to
	a.Decision = decision
	a.UpdatedAt = time.Now()
	s.assignments[id] = a
	return a, nil
}

func (s *InMemoryStore) ActiveCountsByAssignee(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, a := range s.assignments {
		if a.Status == StatusActive {
			counts[a.AssigneeID]++
		}
	}
	return counts, nil
}
