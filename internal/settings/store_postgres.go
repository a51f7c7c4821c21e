package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	"complyflow/internal/strategy"
	"complyflow/internal/workflow"
	dErrors "complyflow/pkg/domain-errors"
	txcontext "complyflow/pkg/platform/tx"
)

// PostgresStore persists assignment settings. The routing maps are stored as
// jsonb; the role/department sets as text arrays.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, scope string) (Settings, error) {
	query := `
		SELECT scope, enabled, strategy, eligible_roles, eligible_departments,
		       department_routing, expertise_routing, updated_at
		FROM assignment_settings
		WHERE scope = $1
	`
	row := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, scope)

	var (
		stored                       Settings
		strategyName                 string
		roles, departments           pq.StringArray
		deptRouting, expertiseRoutes []byte
	)
	err := row.Scan(&stored.Scope, &stored.Enabled, &strategyName, &roles,
		&departments, &deptRouting, &expertiseRoutes, &stored.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, dErrors.Newf(dErrors.CodeNotFound, "no settings for scope %q", scope)
	}
	if err != nil {
		return Settings{}, dErrors.Wrap(err, dErrors.CodePersistence, "select assignment settings")
	}

	stored.Strategy = strategy.Type(strategyName)
	stored.EligibleRoles = roles
	stored.EligibleDepartments = departments
	if err := unmarshalRouting(deptRouting, &stored.DepartmentRouting); err != nil {
		return Settings{}, err
	}
	if err := unmarshalRouting(expertiseRoutes, &stored.ExpertiseRouting); err != nil {
		return Settings{}, err
	}
	return stored, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, settings Settings) error {
	deptRouting, err := json.Marshal(settings.DepartmentRouting)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal department routing")
	}
	expertiseRouting, err := json.Marshal(settings.ExpertiseRouting)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal expertise routing")
	}

	query := `
		INSERT INTO assignment_settings
			(scope, enabled, strategy, eligible_roles, eligible_departments,
			 department_routing, expertise_routing, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (scope) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			strategy = EXCLUDED.strategy,
			eligible_roles = EXCLUDED.eligible_roles,
			eligible_departments = EXCLUDED.eligible_departments,
			department_routing = EXCLUDED.department_routing,
			expertise_routing = EXCLUDED.expertise_routing,
			updated_at = EXCLUDED.updated_at
	`
	_, err = txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		settings.Scope, settings.Enabled, string(settings.Strategy),
		pq.Array(settings.EligibleRoles), pq.Array(settings.EligibleDepartments),
		deptRouting, expertiseRouting, settings.UpdatedAt,
	)
	return dErrors.Wrap(err, dErrors.CodePersistence, "upsert assignment settings")
}

func unmarshalRouting(raw []byte, dst *map[workflow.ModuleType][]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "unmarshal routing table")
	}
	return nil
}
