package strategy

import (
	"context"

	"github.com/redis/go-redis/v9"

	"complyflow/internal/workflow"
	dErrors "complyflow/pkg/domain-errors"
)

const cursorKeyPrefix = "assign:cursor:"

// RedisCursorStore persists round-robin cursors in Redis, shared across
// engine instances. INCR gives the atomic increment-and-read the cursor
// contract requires.
type RedisCursorStore struct {
	client *redis.Client
}

func NewRedisCursorStore(client *redis.Client) *RedisCursorStore {
	return &RedisCursorStore{client: client}
}

func (s *RedisCursorStore) Advance(ctx context.Context, module workflow.ModuleType) (uint64, error) {
	n, err := s.client.Incr(ctx, cursorKeyPrefix+string(module)).Result()
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "advance round-robin cursor")
	}
	// INCR returns the new 1-based value; the position is the previous one.
	return uint64(n - 1), nil
}
