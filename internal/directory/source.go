package directory

import "context"

// Source is the external identity/directory system.
type Source interface {
	// ListUsers returns the users matching the filter. An empty result is
	// a valid answer, not an error.
	ListUsers(ctx context.Context, filter Filter) ([]User, error)
}

// WorkloadCounter reports active-assignment counts per assignee. The
// assignment store implements this.
type WorkloadCounter interface {
	ActiveCountsByAssignee(ctx context.Context) (map[string]int, error)
}
