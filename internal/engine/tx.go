package engine

import (
	"context"
	"sync"

	"complyflow/internal/assignment"
	"complyflow/internal/history"
	"complyflow/internal/workflow"
)

// Stores bundles the records the ledger mutates together. Every mutation to
// items, assignments, and history for a single call goes through one
// RunInTx so partial application cannot happen.
type Stores struct {
	Items       workflow.ItemStore
	Assignments assignment.Store
	History     history.Store
}

// TxRunner provides the transactional boundary for ledger mutations.
// Implementations wrap a database transaction or, in memory, a coarse lock.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// MemoryTx is the in-memory TxRunner. A coarse lock stands in for the
// database transaction; the memory stores apply each operation atomically,
// and the engine's per-item locks serialize the flows that span several.
type MemoryTx struct {
	mu     sync.Mutex
	stores Stores
}

func NewMemoryTx(stores Stores) *MemoryTx {
	return &MemoryTx{stores: stores}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx, t.stores)
}
