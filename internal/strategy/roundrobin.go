package strategy

import (
	"context"
	"sort"

	"complyflow/internal/directory"
	"complyflow/internal/workflow"
)

// RoundRobin cycles through the eligible set sorted by user ID. The cursor
// is persisted per module type and advanced atomically, so two concurrent
// auto-assigns cannot pick the same reviewer twice. Reviewers who left the
// eligible set are skipped naturally: the position indexes into the current
// set.
type RoundRobin struct {
	cursors CursorStore
}

func NewRoundRobin(cursors CursorStore) *RoundRobin {
	return &RoundRobin{cursors: cursors}
}

func (rr *RoundRobin) Resolve(ctx context.Context, item workflow.Item, eligible []directory.ReviewerInfo) (directory.ReviewerInfo, error) {
	if len(eligible) == 0 {
		return directory.ReviewerInfo{}, errNoEligible(item)
	}

	sorted := append([]directory.ReviewerInfo{}, eligible...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })

	pos, err := rr.cursors.Advance(ctx, item.Module)
	if err != nil {
		return directory.ReviewerInfo{}, err
	}
	return sorted[pos%uint64(len(sorted))], nil
}
