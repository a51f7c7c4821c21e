package directory

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Adapter combines the identity source with assignment workloads to produce
// the eligible reviewer set.
type Adapter struct {
	source    Source
	workloads WorkloadCounter
}

func NewAdapter(source Source, workloads WorkloadCounter) *Adapter {
	return &Adapter{source: source, workloads: workloads}
}

// EligibleReviewers returns the reviewers matching the filter, sorted by
// ascending user ID, each annotated with its open-assignment count. An empty
// set is a valid result; callers treat it as "no eligible reviewer", not a
// crash. The directory lookup and the workload query run concurrently with
// shared cancellation.
func (a *Adapter) EligibleReviewers(ctx context.Context, filter Filter) ([]ReviewerInfo, error) {
	var (
		users  []User
		counts map[string]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = a.source.ListUsers(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = a.workloads.ActiveCountsByAssignee(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(users))
	reviewers := make([]ReviewerInfo, 0, len(users))
	for _, u := range users {
		// A user qualifying through multiple roles or departments appears
		// once.
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		reviewers = append(reviewers, ReviewerInfo{
			UserID:          u.ID,
			Role:            u.Role,
			Department:      u.Department,
			OpenAssignments: counts[u.ID],
		})
	}

	sort.Slice(reviewers, func(i, j int) bool { return reviewers[i].UserID < reviewers[j].UserID })
	return reviewers, nil
}
