package notification

import (
	"context"
)

// Store persists notifications.
type Store interface {
	Create(ctx context.Context, n Notification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]Notification, error)
	// MarkRead flips the read flag on the given ids, restricted to rows the
	// recipient owns, and returns how many rows changed.
	MarkRead(ctx context.Context, recipientID string, ids []string) (int, error)
}
