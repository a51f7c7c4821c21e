package settings

import (
	"context"
	"time"

	dErrors "complyflow/pkg/domain-errors"
)

// Service layers defaulting and patch semantics over the store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the configured settings for scope, or the hard-coded default
// when no row exists. A missing row is not an error.
func (s *Service) Get(ctx context.Context, scope string) (Settings, error) {
	stored, err := s.store.Get(ctx, scope)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return Default(scope), nil
	}
	if err != nil {
		return Settings{}, err
	}
	return stored, nil
}

// Update applies the patch to the scope's settings (or the defaults when the
// scope has no row yet) and upserts the result. Last writer wins.
func (s *Service) Update(ctx context.Context, scope string, patch UpdateRequest) (Settings, error) {
	current, err := s.Get(ctx, scope)
	if err != nil {
		return Settings{}, err
	}
	if err := patch.apply(&current); err != nil {
		return Settings{}, err
	}
	current.Scope = scope
	current.UpdatedAt = time.Now()
	if err := s.store.Upsert(ctx, current); err != nil {
		return Settings{}, err
	}
	return current, nil
}
