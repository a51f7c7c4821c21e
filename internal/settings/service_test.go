package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complyflow/internal/strategy"
	"complyflow/internal/workflow"
	dErrors "complyflow/pkg/domain-errors"
)

func boolPtr(b bool) *bool                     { return &b }
func strategyPtr(t strategy.Type) *strategy.Type { return &t }

func TestGet_MissingScopeReturnsDefaults(t *testing.T) {
	svc := NewService(NewInMemoryStore())

	got, err := svc.Get(context.Background(), ScopeGlobal)
	require.NoError(t, err, "a missing row is not an error")
	assert.True(t, got.Enabled)
	assert.Equal(t, strategy.TypeWorkloadBalanced, got.Strategy)
	assert.Empty(t, got.EligibleRoles)
}

func TestUpdate_UpsertsAndReadsBack(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewInMemoryStore())

	updated, err := svc.Update(ctx, "user:reviewer-1", UpdateRequest{
		Strategy:      strategyPtr(strategy.TypeRoundRobin),
		EligibleRoles: []string{"decision_maker", "auditor"},
	})
	require.NoError(t, err)
	assert.Equal(t, strategy.TypeRoundRobin, updated.Strategy)
	assert.True(t, updated.Enabled, "untouched fields keep their defaults")

	got, err := svc.Get(ctx, "user:reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, updated.Strategy, got.Strategy)
	assert.Equal(t, []string{"decision_maker", "auditor"}, got.EligibleRoles)
}

func TestUpdate_SetsAreReplacedNotMerged(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewInMemoryStore())

	_, err := svc.Update(ctx, ScopeGlobal, UpdateRequest{
		EligibleDepartments: []string{"Legal & Compliance", "Engineering"},
	})
	require.NoError(t, err)

	got, err := svc.Update(ctx, ScopeGlobal, UpdateRequest{
		EligibleDepartments: []string{"Legal & Compliance"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Legal & Compliance"}, got.EligibleDepartments,
		"stale departments must not accumulate")
}

func TestUpdate_DisableAutoAssign(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewInMemoryStore())

	got, err := svc.Update(ctx, ScopeGlobal, UpdateRequest{Enabled: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestUpdate_RejectsBadPatch(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewInMemoryStore())

	bogus := strategy.Type("alphabetical")
	_, err := svc.Update(ctx, ScopeGlobal, UpdateRequest{Strategy: &bogus})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.Update(ctx, ScopeGlobal, UpdateRequest{
		DepartmentRouting: map[workflow.ModuleType][]string{"not_a_module": {"Legal & Compliance"}},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestUpdate_RoutingTables(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewInMemoryStore())

	got, err := svc.Update(ctx, ScopeGlobal, UpdateRequest{
		DepartmentRouting: map[workflow.ModuleType][]string{
			workflow.ModuleRiskAssessment: {"Legal & Compliance"},
		},
		ExpertiseRouting: map[workflow.ModuleType][]string{
			workflow.ModuleRiskAssessment: {"decision_maker"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Legal & Compliance"}, got.DepartmentRouting[workflow.ModuleRiskAssessment])
	assert.Equal(t, []string{"decision_maker"}, got.ExpertiseRouting[workflow.ModuleRiskAssessment])
}
