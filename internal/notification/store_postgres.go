package notification

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	dErrors "complyflow/pkg/domain-errors"
	txcontext "complyflow/pkg/platform/tx"
)

// PostgresStore persists notifications. Notification writes are best-effort
// and happen after the ledger transaction commits, so this store normally
// runs outside any ambient transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, n Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, workflow_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		n.ID, n.RecipientID, n.WorkflowID, n.Message, n.Read, n.CreatedAt)
	return dErrors.Wrap(err, dErrors.CodePersistence, "insert notification")
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipientID string) ([]Notification, error) {
	query := `
		SELECT id, recipient_id, workflow_id, message, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at
	`
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list notifications")
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.WorkflowID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "scan notification")
		}
		out = append(out, n)
	}
	return out, dErrors.Wrap(rows.Err(), dErrors.CodePersistence, "iterate notifications")
}

func (s *PostgresStore) MarkRead(ctx context.Context, recipientID string, ids []string) (int, error) {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE recipient_id = $1 AND id = ANY($2) AND read = FALSE
	`
	res, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query, recipientID, pq.Array(ids))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "mark notifications read")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "mark notifications read")
	}
	return int(affected), nil
}
