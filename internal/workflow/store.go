package workflow

import (
	"context"
)

// ListFilter narrows List results; zero values mean no filtering.
type ListFilter struct {
	Status Status
	Module ModuleType
}

// ItemStore persists approval items. UpdateStatus performs a compare-and-set
// on the item's version: a mismatch returns CodeStaleState so racing writers
// cannot double-transition an item.
type ItemStore interface {
	Create(ctx context.Context, item Item) error
	Get(ctx context.Context, id string) (Item, error)
	List(ctx context.Context, filter ListFilter) ([]Item, error)
	UpdateStatus(ctx context.Context, id string, to Status, expectedVersion int64) (Item, error)
}
