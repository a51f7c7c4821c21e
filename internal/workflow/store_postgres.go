package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dErrors "complyflow/pkg/domain-errors"
	txcontext "complyflow/pkg/platform/tx"
)

// PostgresStore persists approval items. It joins an ambient transaction
// from context so the ledger can commit item, assignment, and history
// mutations as one unit.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, item Item) error {
	query := `
		INSERT INTO approval_items
			(id, module, title, description, priority, status, payload, submitted_by, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		item.ID, string(item.Module), item.Title, item.Description,
		string(item.Priority), string(item.Status), []byte(item.Payload),
		item.SubmittedBy, item.Version, item.CreatedAt, item.UpdatedAt,
	)
	return dErrors.Wrap(err, dErrors.CodePersistence, "insert approval item")
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Item, error) {
	query := `
		SELECT id, module, title, description, priority, status, payload, submitted_by, version, created_at, updated_at
		FROM approval_items
		WHERE id = $1
	`
	row := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, id)
	item, err := scanItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, dErrors.Newf(dErrors.CodeNotFound, "item %s not found", id)
	}
	if err != nil {
		return Item{}, dErrors.Wrap(err, dErrors.CodePersistence, "select approval item")
	}
	return item, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	query := `
		SELECT id, module, title, description, priority, status, payload, submitted_by, version, created_at, updated_at
		FROM approval_items
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR module = $2)
		ORDER BY created_at
	`
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, query,
		string(filter.Status), string(filter.Module))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list approval items")
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "scan approval item")
		}
		items = append(items, item)
	}
	return items, dErrors.Wrap(rows.Err(), dErrors.CodePersistence, "iterate approval items")
}

// UpdateStatus transitions the item only when the stored version matches.
// Zero rows affected with an existing item means a concurrent writer won.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, to Status, expectedVersion int64) (Item, error) {
	query := `
		UPDATE approval_items
		SET status = $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $4
	`
	res, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		id, string(to), time.Now(), expectedVersion)
	if err != nil {
		return Item{}, dErrors.Wrap(err, dErrors.CodePersistence, "update approval item status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Item{}, dErrors.Wrap(err, dErrors.CodePersistence, "update approval item status")
	}
	if affected == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return Item{}, getErr
		}
		return Item{}, dErrors.Newf(dErrors.CodeStaleState,
			"item %s was modified concurrently", id)
	}
	return s.Get(ctx, id)
}

func scanItem(scan func(dest ...any) error) (Item, error) {
	var (
		item             Item
		module, priority string
		status           string
		payload          []byte
	)
	err := scan(&item.ID, &module, &item.Title, &item.Description, &priority,
		&status, &payload, &item.SubmittedBy, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	item.Module = ModuleType(module)
	item.Priority = Priority(priority)
	item.Status = Status(status)
	item.Payload = payload
	return item, nil
}
