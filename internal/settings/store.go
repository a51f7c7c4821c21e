package settings

import (
	"context"
)

// Store persists assignment settings, one row per scope.
type Store interface {
	Get(ctx context.Context, scope string) (Settings, error)
	Upsert(ctx context.Context, s Settings) error
}
