// Package strategy selects assignees for approval items. Each strategy is a
// Resolver; the Type enum is closed and New switches over it exhaustively so
// an unhandled variant cannot slip through.
package strategy

import (
	"context"

	"complyflow/internal/directory"
	"complyflow/internal/workflow"
	dErrors "complyflow/pkg/domain-errors"
)

// Type enumerates the automatic assignment strategies.
type Type string

const (
	TypeWorkloadBalanced Type = "workload_balanced"
	TypeRoundRobin       Type = "round_robin"
	TypeDepartmentBased  Type = "department_based"
	TypeExpertiseBased   Type = "expertise_based"
)

// ParseType validates a caller-supplied strategy name.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeWorkloadBalanced, TypeRoundRobin, TypeDepartmentBased, TypeExpertiseBased:
		return t, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown strategy %q", s)
	}
}

// UnmarshalText validates strategy names arriving through JSON or env
// configuration.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Resolver picks one assignee from the eligible set. Implementations are
// deterministic given their inputs except for round-robin's cursor state.
type Resolver interface {
	Resolve(ctx context.Context, item workflow.Item, eligible []directory.ReviewerInfo) (directory.ReviewerInfo, error)
}

// Config carries the state and routing tables strategies may need. The
// routing maps come from the assignment settings in force for the call.
type Config struct {
	Cursors           CursorStore
	DepartmentRouting map[workflow.ModuleType][]string
	ExpertiseRouting  map[workflow.ModuleType][]string
}

// New constructs the resolver for t. The switch is exhaustive over the
// closed Type set.
func New(t Type, cfg Config) (Resolver, error) {
	switch t {
	case TypeWorkloadBalanced:
		return WorkloadBalanced{}, nil
	case TypeRoundRobin:
		if cfg.Cursors == nil {
			return nil, dErrors.New(dErrors.CodeInternal, "round_robin requires a cursor store")
		}
		return &RoundRobin{cursors: cfg.Cursors}, nil
	case TypeDepartmentBased:
		return DepartmentBased{routing: cfg.DepartmentRouting}, nil
	case TypeExpertiseBased:
		return ExpertiseBased{routing: cfg.ExpertiseRouting}, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown strategy %q", t)
	}
}

func errNoEligible(item workflow.Item) error {
	return dErrors.Newf(dErrors.CodeNoEligibleReviewer,
		"no eligible reviewer for item %s (%s)", item.ID, item.Module)
}
