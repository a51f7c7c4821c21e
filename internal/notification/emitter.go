package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"complyflow/internal/platform/metrics"
)

// Emitter creates notification records for affected users. It is best-effort
// by contract: persistence failures are logged and counted, never returned,
// so a broken notification store cannot fail an assignment.
type Emitter struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewEmitter(store Store, logger *slog.Logger, m *metrics.Metrics) *Emitter {
	return &Emitter{store: store, logger: logger, metrics: m}
}

// Notify creates one notification per recipient. A failure on one recipient
// does not stop the rest.
func (e *Emitter) Notify(ctx context.Context, workflowID string, recipients []string, message string) {
	for _, recipient := range recipients {
		n := Notification{
			ID:          uuid.NewString(),
			RecipientID: recipient,
			WorkflowID:  workflowID,
			Message:     message,
			CreatedAt:   time.Now(),
		}
		if err := e.store.Create(ctx, n); err != nil {
			if e.metrics != nil {
				e.metrics.NotificationFailures.Inc()
			}
			e.logger.ErrorContext(ctx, "failed to persist notification",
				"workflow_id", workflowID,
				"recipient", recipient,
				"error", err,
			)
		}
	}
}
