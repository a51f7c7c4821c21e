package assignment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dErrors "complyflow/pkg/domain-errors"
	txcontext "complyflow/pkg/platform/tx"
)

// PostgresStore persists assignments. All methods join an ambient
// transaction from context when one is present.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const assignmentColumns = `id, workflow_id, assignee_id, assigned_by, reason, note, status, decision, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a Assignment) error {
	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		a.ID, a.WorkflowID, a.AssigneeID, a.AssignedBy, string(a.Reason),
		a.Note, string(a.Status), string(a.Decision), a.CreatedAt, a.UpdatedAt,
	)
	return dErrors.Wrap(err, dErrors.CodePersistence, "insert assignment")
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	row := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, id)
	a, err := scanAssignment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, dErrors.Newf(dErrors.CodeNotFound, "assignment %s not found", id)
	}
	if err != nil {
		return Assignment{}, dErrors.Wrap(err, dErrors.CodePersistence, "select assignment")
	}
	return a, nil
}

func (s *PostgresStore) ListByItem(ctx context.Context, workflowID string) ([]Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE workflow_id = $1 ORDER BY created_at`
	return s.queryMany(ctx, query, workflowID)
}

func (s *PostgresStore) ListActiveByItem(ctx context.Context, workflowID string) ([]Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE workflow_id = $1 AND status = 'active' ORDER BY created_at`
	return s.queryMany(ctx, query, workflowID)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, expected Status, to Status, decision Decision) (Assignment, error) {
	query := `
		UPDATE assignments
		SET status = $2, decision = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`
	res, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		id, string(to), string(decision), time.Now(), string(expected))
	if err != nil {
		return Assignment{}, dErrors.Wrap(err, dErrors.CodePersistence, "update assignment status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Assignment{}, dErrors.Wrap(err, dErrors.CodePersistence, "update assignment status")
	}
	if affected == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return Assignment{}, getErr
		}
		return Assignment{}, dErrors.Newf(dErrors.CodeStaleState,
			"assignment %s was modified concurrently", id)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) ActiveCountsByAssignee(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT assignee_id, COUNT(*)
		FROM assignments
		WHERE status = 'active'
		GROUP BY assignee_id
	`
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "count active assignments")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			assignee string
			count    int
		)
		if err := rows.Scan(&assignee, &count); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "scan assignment count")
		}
		counts[assignee] = count
	}
	return counts, dErrors.Wrap(rows.Err(), dErrors.CodePersistence, "iterate assignment counts")
}

func (s *PostgresStore) queryMany(ctx context.Context, query string, args ...any) ([]Assignment, error) {
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list assignments")
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "scan assignment")
		}
		out = append(out, a)
	}
	return out, dErrors.Wrap(rows.Err(), dErrors.CodePersistence, "iterate assignments")
}

func scanAssignment(scan func(dest ...any) error) (Assignment, error) {
	var (
		a                        Assignment
		reason, status, decision string
	)
	err := scan(&a.ID, &a.WorkflowID, &a.AssigneeID, &a.AssignedBy, &reason,
		&a.Note, &status, &decision, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Assignment{}, err
	}
	a.Reason = Reason(reason)
	a.Status = Status(status)
	a.Decision = Decision(decision)
	return a, nil
}
