package notification

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is the non-persistent Store used in tests and local
// development.
type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[string]Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{notifications: make(map[string]Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = n
	return nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, recipientID string) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, recipientID string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for _, id := range ids {
		n, ok := s.notifications[id]
		if !ok || n.RecipientID != recipientID || n.Read {
			continue
		}
		n.Read = true
		s.notifications[id] = n
		updated++
	}
	return updated, nil
}
