package directory

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	dErrors "complyflow/pkg/domain-errors"
)

// PostgresSource reads the reviewer directory from the reviewers table. Rows
// are synced in from the identity system outside this process.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) ListUsers(ctx context.Context, filter Filter) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, department
		FROM reviewers
		WHERE (coalesce(cardinality($1::text[]), 0) = 0 OR role = ANY($1))
		  AND (coalesce(cardinality($2::text[]), 0) = 0 OR department = ANY($2))
		ORDER BY id
	`, pq.Array(filter.Roles), pq.Array(filter.Departments))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to list reviewers")
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Role, &u.Department); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to scan reviewer")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to read reviewers")
	}
	return users, nil
}
