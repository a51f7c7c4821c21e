package strategy

import (
	"context"

	"complyflow/internal/directory"
	"complyflow/internal/workflow"
)

// DepartmentBased narrows the eligible set to the departments routed for the
// item's module type, then balances workload within that subset. When the
// subset is empty, or no routing is configured for the module, it falls back
// to workload balancing over the full eligible set.
type DepartmentBased struct {
	routing map[workflow.ModuleType][]string
}

func NewDepartmentBased(routing map[workflow.ModuleType][]string) DepartmentBased {
	return DepartmentBased{routing: routing}
}

func (d DepartmentBased) Resolve(ctx context.Context, item workflow.Item, eligible []directory.ReviewerInfo) (directory.ReviewerInfo, error) {
	filtered := filterBy(eligible, d.routing[item.Module], func(r directory.ReviewerInfo) string {
		return r.Department
	})
	return WorkloadBalanced{}.Resolve(ctx, item, filtered)
}

// ExpertiseBased narrows by the roles required for the item's module type,
// with the same fallback behavior as DepartmentBased.
type ExpertiseBased struct {
	routing map[workflow.ModuleType][]string
}

func NewExpertiseBased(routing map[workflow.ModuleType][]string) ExpertiseBased {
	return ExpertiseBased{routing: routing}
}

func (e ExpertiseBased) Resolve(ctx context.Context, item workflow.Item, eligible []directory.ReviewerInfo) (directory.ReviewerInfo, error) {
	filtered := filterBy(eligible, e.routing[item.Module], func(r directory.ReviewerInfo) string {
		return r.Role
	})
	return WorkloadBalanced{}.Resolve(ctx, item, filtered)
}

// filterBy keeps reviewers whose key is in wanted. An empty filter result
// falls back to the full set so a misconfigured routing table degrades to
// workload balancing instead of failing resolution.
func filterBy(eligible []directory.ReviewerInfo, wanted []string, key func(directory.ReviewerInfo) string) []directory.ReviewerInfo {
	if len(wanted) == 0 {
		return eligible
	}
	wantedSet := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		wantedSet[w] = true
	}

	var filtered []directory.ReviewerInfo
	for _, r := range eligible {
		if wantedSet[key(r)] {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return eligible
	}
	return filtered
}
