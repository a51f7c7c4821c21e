package assignment

import (
	"context"
)

// Store persists assignments. UpdateStatus succeeds only when the stored
// status matches expected, so two racing completions of the same assignment
// produce exactly one winner.
type Store interface {
	Create(ctx context.Context, a Assignment) error
	Get(ctx context.Context, id string) (Assignment, error)
	ListByItem(ctx context.Context, workflowID string) ([]Assignment, error)
	ListActiveByItem(ctx context.Context, workflowID string) ([]Assignment, error)
	UpdateStatus(ctx context.Context, id string, expected Status, to Status, decision Decision) (Assignment, error)
	// ActiveCountsByAssignee reports the number of active assignments per
	// assignee across all items (the workload signal).
	ActiveCountsByAssignee(ctx context.Context) (map[string]int, error)
}
