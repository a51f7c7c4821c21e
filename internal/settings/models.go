// Package settings holds per-scope assignment configuration: whether
// auto-assignment is on, which strategy it uses, and who is eligible to
// review.
package settings

import (
	"time"

	"complyflow/internal/strategy"
	"complyflow/internal/workflow"
	dErrors "complyflow/pkg/domain-errors"
)

// ScopeGlobal is the fallback scope consulted when no narrower scope exists.
const ScopeGlobal = "global"

// Settings is a singleton per scope; updates are last-writer-wins.
type Settings struct {
	Scope   string
	Enabled bool
	// Strategy selects the automatic assignment algorithm.
	Strategy strategy.Type
	// EligibleRoles and EligibleDepartments bound the reviewer pool. Empty
	// means no restriction on that axis.
	EligibleRoles       []string
	EligibleDepartments []string
	// DepartmentRouting maps a module type to its preferred departments for
	// the department_based strategy.
	DepartmentRouting map[workflow.ModuleType][]string
	// ExpertiseRouting maps a module type to its required roles for the
	// expertise_based strategy.
	ExpertiseRouting map[workflow.ModuleType][]string
	UpdatedAt        time.Time
}

// Default returns the hard-coded settings used when a scope has no row.
func Default(scope string) Settings {
	return Settings{
		Scope:    scope,
		Enabled:  true,
		Strategy: strategy.TypeWorkloadBalanced,
	}
}

// UpdateRequest patches a scope's settings. Nil pointer fields are left
// untouched; slice and map fields replace the stored value outright so stale
// entries cannot accumulate.
type UpdateRequest struct {
	Enabled             *bool
	Strategy            *strategy.Type
	EligibleRoles       []string
	EligibleDepartments []string
	DepartmentRouting   map[workflow.ModuleType][]string
	ExpertiseRouting    map[workflow.ModuleType][]string
}

// Validate rejects malformed patches before anything is written.
func (r UpdateRequest) Validate() error {
	if r.Strategy != nil {
		if _, err := strategy.ParseType(string(*r.Strategy)); err != nil {
			return err
		}
	}
	for module := range r.DepartmentRouting {
		if _, err := workflow.ParseModuleType(string(module)); err != nil {
			return err
		}
	}
	for module := range r.ExpertiseRouting {
		if _, err := workflow.ParseModuleType(string(module)); err != nil {
			return err
		}
	}
	return nil
}

// apply folds the patch into s.
func (r UpdateRequest) apply(s *Settings) error {
	if err := r.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid settings patch")
	}
	if r.Enabled != nil {
		s.Enabled = *r.Enabled
	}
	if r.Strategy != nil {
		s.Strategy = *r.Strategy
	}
	if r.EligibleRoles != nil {
		s.EligibleRoles = append([]string{}, r.EligibleRoles...)
	}
	if r.EligibleDepartments != nil {
		s.EligibleDepartments = append([]string{}, r.EligibleDepartments...)
	}
	if r.DepartmentRouting != nil {
		s.DepartmentRouting = copyRouting(r.DepartmentRouting)
	}
	if r.ExpertiseRouting != nil {
		s.ExpertiseRouting = copyRouting(r.ExpertiseRouting)
	}
	return nil
}

func copyRouting(in map[workflow.ModuleType][]string) map[workflow.ModuleType][]string {
	out := make(map[workflow.ModuleType][]string, len(in))
	for k, v := range in {
		out[k] = append([]string{}, v...)
	}
	return out
}
