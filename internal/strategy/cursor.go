package strategy

import (
	"context"

	"complyflow/internal/workflow"
)

// CursorStore persists the round-robin position per module type. Advance is
// a single atomic increment-and-read: it returns the previous position, and
// no two callers ever observe the same value.
type CursorStore interface {
	Advance(ctx context.Context, module workflow.ModuleType) (uint64, error)
}
