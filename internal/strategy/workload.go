package strategy

import (
	"context"

	"complyflow/internal/directory"
	"complyflow/internal/workflow"
)

// WorkloadBalanced picks the reviewer with the fewest open assignments,
// tie-breaking by ascending user ID for determinism.
type WorkloadBalanced struct{}

func (WorkloadBalanced) Resolve(_ context.Context, item workflow.Item, eligible []directory.ReviewerInfo) (directory.ReviewerInfo, error) {
	if len(eligible) == 0 {
		return directory.ReviewerInfo{}, errNoEligible(item)
	}

	best := eligible[0]
	for _, r := range eligible[1:] {
		if r.OpenAssignments < best.OpenAssignments ||
			(r.OpenAssignments == best.OpenAssignments && r.UserID < best.UserID) {
			best = r
		}
	}
	return best, nil
}
