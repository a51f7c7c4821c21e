package history

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// OutboxWorker drains the history outbox table into Kafka. Entries stay in
// the outbox until a produce succeeds, so the trail downstream is at-least-
// once; consumers dedupe on the entry id.
type OutboxWorker struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	interval time.Duration
	logger   *slog.Logger
}

func NewOutboxWorker(db *sql.DB, client *kgo.Client, topic string, interval time.Duration, logger *slog.Logger) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxWorker{db: db, client: client, topic: topic, interval: interval, logger: logger}
}

// Run polls until the context is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "history outbox drain failed", "error", err)
			}
		}
	}
}

func (w *OutboxWorker) drainOnce(ctx context.Context) error {
	rows, err := w.db.QueryContext(ctx, `
		SELECT id, workflow_id, payload
		FROM history_outbox
		ORDER BY created_at
		LIMIT 100
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type pending struct {
		id         string
		workflowID string
		payload    []byte
	}
	var batch []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.workflowID, &p.payload); err != nil {
			return err
		}
		batch = append(batch, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range batch {
		record := &kgo.Record{
			Topic: w.topic,
			// Keying by workflow id keeps one item's trail ordered within a
			// partition.
			Key:   []byte(p.workflowID),
			Value: p.payload,
		}
		if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return err
		}
		if _, err := w.db.ExecContext(ctx, `DELETE FROM history_outbox WHERE id = $1`, p.id); err != nil {
			return err
		}
	}
	return nil
}
