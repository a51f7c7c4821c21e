package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	dErrors "complyflow/pkg/domain-errors"
	txcontext "complyflow/pkg/platform/tx"
)

// PostgresStore persists history entries using the transactional outbox
// pattern: every append writes the entry row and an outbox row in the same
// executor, and the outbox worker publishes to Kafka afterwards. Joining the
// caller's transaction is what makes history fail-closed: if the business
// write rolls back, so does the trail, and vice versa.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	Detail     string `json:"detail,omitempty"`
	Failed     bool   `json:"failed,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	exec := txcontext.ExecutorFor(ctx, s.db)

	query := `
		INSERT INTO history_entries (id, workflow_id, actor, action, detail, failed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := exec.ExecContext(ctx, query,
		entry.ID, entry.WorkflowID, entry.Actor, string(entry.Action),
		entry.Detail, entry.Failed, entry.CreatedAt,
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "insert history entry")
	}

	payload, err := json.Marshal(outboxPayload{
		ID:         entry.ID,
		WorkflowID: entry.WorkflowID,
		Actor:      entry.Actor,
		Action:     string(entry.Action),
		Detail:     entry.Detail,
		Failed:     entry.Failed,
		CreatedAt:  entry.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal history payload")
	}

	outboxQuery := `
		INSERT INTO history_outbox (id, workflow_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = exec.ExecContext(ctx, outboxQuery, uuid.NewString(), entry.WorkflowID, payload, time.Now())
	return dErrors.Wrap(err, dErrors.CodePersistence, "insert history outbox entry")
}

func (s *PostgresStore) ListByItem(ctx context.Context, workflowID string) ([]Entry, error) {
	query := `
		SELECT id, workflow_id, actor, action, detail, failed, created_at
		FROM history_entries
		WHERE workflow_id = $1
		ORDER BY created_at, id
	`
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list history entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry  Entry
			action string
		)
		if err := rows.Scan(&entry.ID, &entry.WorkflowID, &entry.Actor, &action,
			&entry.Detail, &entry.Failed, &entry.CreatedAt); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "scan history entry")
		}
		entry.Action = Action(action)
		entries = append(entries, entry)
	}
	return entries, dErrors.Wrap(rows.Err(), dErrors.CodePersistence, "iterate history entries")
}
