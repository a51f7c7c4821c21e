package history

import (
	"context"
)

// Store persists history entries. Append-only: there is deliberately no
// update or delete operation.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByItem(ctx context.Context, workflowID string) ([]Entry, error)
}
