package settings

import (
	"context"
	"sync"

	dErrors "complyflow/pkg/domain-errors"
)

// InMemoryStore is the non-persistent Store used in tests and local
// development.
type InMemoryStore struct {
	mu     sync.RWMutex
	scopes map[string]Settings
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{scopes: make(map[string]Settings)}
}

func (s *InMemoryStore) Get(_ context.Context, scope string) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.scopes[scope]
	if !ok {
		return Settings{}, dErrors.Newf(dErrors.CodeNotFound, "no settings for scope %q", scope)
	}
	return stored, nil
}

func (s *InMemoryStore) Upsert(_ context.Context, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[settings.Scope] = settings
	return nil
}
